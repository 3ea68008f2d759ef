package protocol_test

import (
	"encoding/json"
	"testing"

	"inventors.io/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(name string, v any) {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := protocol.Validate(name, b); err != nil {
			t.Fatalf("validate %s: %v", name, err)
		}
	}

	validate(protocol.SchemaHello, protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: protocol.Version, AgentName: "bot1",
	})
	validate(protocol.SchemaWelcome, protocol.WelcomeMsg{
		Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version, PlayerID: "P1",
		Catalogs: protocol.CatalogDigests{InventionsDigest: "deadbeef", InventorsDigest: "deadbeef"},
	})

	roster := []protocol.PlayerState{{
		PlayerID: "P1", Name: "bot1", Team: "RED", TurnMarker: true,
		Inventors: []protocol.InventorState{{Name: "Tesla", Team: "RED", Knowledge: protocol.Knowledge{Mech: 2}}},
	}}
	table := []protocol.InventionState{{
		Name: "Bow", Era: 1,
		Required:      protocol.Knowledge{Phys: 1, Mech: 2, Math: 2},
		Contributions: map[string]int{"P1": 2},
		Rewards:       []protocol.Reward{{Type: "CARD", Value: 1}, {Type: "VICTORY", Value: 3}},
	}}
	validate(protocol.SchemaGameStarted, protocol.GameStartedMsg{
		Type: protocol.TypeGameStarted, ProtocolVersion: protocol.Version,
		SessionID: "S1", PlayerID: "P1", Team: "RED", Era: 1, Roster: roster, Table: table,
	})
	validate(protocol.SchemaSynchronize, protocol.SynchronizeMsg{
		Type: protocol.TypeSynchronize, ProtocolVersion: protocol.Version, Era: 2, Roster: roster, Table: table,
	})
	validate(protocol.SchemaRewardOffer, protocol.RewardOfferMsg{
		Type: protocol.TypeRewardOffer, ProtocolVersion: protocol.Version, ReqID: "R1",
		Invention: "Bow", Contribution: 2, Rewards: table[0].Rewards,
	})
	validate(protocol.SchemaGameEnded, protocol.GameEndedMsg{
		Type: protocol.TypeGameEnded, ProtocolVersion: protocol.Version, Victory: true, Score: 7,
	})
	validate(protocol.SchemaKicked, protocol.KickedMsg{
		Type: protocol.TypeKicked, ProtocolVersion: protocol.Version, Code: protocol.ErrNotResponding, Reason: "timeout",
	})
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	cases := []struct {
		schema string
		raw    string
	}{
		{protocol.SchemaHello, `{"type":"HELLO","protocol_version":"1.0"}`},
		{protocol.SchemaKicked, `{"type":"KICKED","protocol_version":"1.0","code":"nope","reason":""}`},
		{protocol.SchemaGameEnded, `{"type":"GAME_ENDED","protocol_version":"1.0","victory":"yes","score":1}`},
		{protocol.SchemaSynchronize, `{"type":"SYNCHRONIZE","protocol_version":"1.0","era":4,"roster":[],"table":[]}`},
	}
	for _, c := range cases {
		if err := protocol.Validate(c.schema, []byte(c.raw)); err == nil {
			t.Fatalf("%s accepted %s", c.schema, c.raw)
		}
	}
}

func TestDecodeActionReply(t *testing.T) {
	got, err := protocol.DecodeActionReply([]byte(`{"type":"REPLY","protocol_version":"1.0","req_id":"R1","action":{"kind":"WORK","inventor":"Tesla","invention":"Bow"}}`))
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if got.Kind != protocol.ActionWork || got.Inventor != "Tesla" || got.Invention != "Bow" {
		t.Fatalf("got %+v", got)
	}

	got, err = protocol.DecodeActionReply([]byte(`{"type":"REPLY","protocol_version":"1.0","req_id":"R2","action":{"kind":"MAKE_AVAILABLE"}}`))
	if err != nil || got.Kind != protocol.ActionMakeAvailable {
		t.Fatalf("make available: %+v %v", got, err)
	}

	bad := []string{
		`{"type":"REPLY","protocol_version":"1.0","req_id":"R3"}`,
		`{"type":"REPLY","protocol_version":"1.0","req_id":"R3","action":{"kind":"DANCE"}}`,
		`{"type":"REPLY","protocol_version":"1.0","req_id":"R3","action":{"kind":"WORK","inventor":"Tesla"}}`,
		`{"type":"REPLY","protocol_version":"1.0","req_id":"R3","action":null}`,
		`not json`,
	}
	for _, raw := range bad {
		if _, err := protocol.DecodeActionReply([]byte(raw)); err == nil {
			t.Fatalf("accepted %s", raw)
		}
	}
}

func TestDecodeRewardReply(t *testing.T) {
	idx, err := protocol.DecodeRewardReply([]byte(`{"type":"REPLY","protocol_version":"1.0","req_id":"R1","index":2}`))
	if err != nil || idx != 2 {
		t.Fatalf("got %d %v", idx, err)
	}
	// Out-of-range values decode; the allocator rejects them.
	if idx, err := protocol.DecodeRewardReply([]byte(`{"type":"REPLY","protocol_version":"1.0","req_id":"R1","index":-1}`)); err != nil || idx != -1 {
		t.Fatalf("got %d %v", idx, err)
	}
	bad := []string{
		`{"type":"REPLY","protocol_version":"1.0","req_id":"R1","index":"two"}`,
		`{"type":"REPLY","protocol_version":"1.0","req_id":"R1","index":1.5}`,
		`{"type":"REPLY","protocol_version":"1.0","req_id":"R1"}`,
	}
	for _, raw := range bad {
		if _, err := protocol.DecodeRewardReply([]byte(raw)); err == nil {
			t.Fatalf("accepted %s", raw)
		}
	}
}
