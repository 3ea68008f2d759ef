package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names, one per file under schemas/.
const (
	SchemaHello       = "hello"
	SchemaWelcome     = "welcome"
	SchemaGameStarted = "game_started"
	SchemaRewardOffer = "reward_offer"
	SchemaSynchronize = "synchronize"
	SchemaGameEnded   = "game_ended"
	SchemaKicked      = "kicked"
	SchemaActionReply = "action_reply"
	SchemaRewardReply = "reward_reply"
)

const (
	schemaURLBase    = "https://inventors.io/schemas/"
	schemaFileSuffix = ".schema.json"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	files, err := fs.Glob(schemaFS, "schemas/*"+schemaFileSuffix)
	if err != nil {
		schemasErr = err
		return
	}
	c := jsonschema.NewCompiler()
	for _, f := range files {
		b, err := schemaFS.ReadFile(f)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaURLBase+path.Base(f), bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("%s: %w", f, err)
			return
		}
	}
	out := make(map[string]*jsonschema.Schema, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), schemaFileSuffix)
		s, err := c.Compile(schemaURLBase + path.Base(f))
		if err != nil {
			schemasErr = fmt.Errorf("%s: %w", f, err)
			return
		}
		out[name] = s
	}
	schemas = out
}

// Schema returns the compiled schema for name.
func Schema(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Validate checks a raw JSON message against the named schema.
func Validate(name string, raw []byte) error {
	s, err := Schema(name)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

// DecodeActionReply validates a REPLY frame answering TURN_STARTED and returns its action.
func DecodeActionReply(raw []byte) (ActionReply, error) {
	if err := Validate(SchemaActionReply, raw); err != nil {
		return ActionReply{}, err
	}
	var m ReplyMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return ActionReply{}, err
	}
	if m.Action == nil {
		return ActionReply{}, fmt.Errorf("reply %s carries no action", m.ReqID)
	}
	return *m.Action, nil
}

// DecodeRewardReply validates a REPLY frame answering REWARD_OFFER and returns its index.
// Range checking is left to the caller, who owns the offered list.
func DecodeRewardReply(raw []byte) (int, error) {
	if err := Validate(SchemaRewardReply, raw); err != nil {
		return 0, err
	}
	var m ReplyMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0, err
	}
	if m.Index == nil {
		return 0, fmt.Errorf("reply %s carries no index", m.ReqID)
	}
	return *m.Index, nil
}
