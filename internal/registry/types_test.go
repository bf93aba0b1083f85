package registry

import (
	"encoding/json"
	"testing"
)

func TestBatchResponseObjectShape(t *testing.T) {
	payload := `{
		"hasMore": true,
		"requests": [{"nrNum": "NR 1111111", "stateCd": "APPROVED"}],
		"businessEntities": [{"identifier": "BC0001234"}],
		"draftEntities": [{"identifier": "TAbc123", "nrNumber": "NR 1111111"}]
	}`

	var decoded BatchResponse
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.HasMore {
		t.Fatal("expected hasMore")
	}
	if len(decoded.NameRequests) != 1 || decoded.NameRequests[0].NrNum != "NR 1111111" {
		t.Fatalf("unexpected requests: %+v", decoded.NameRequests)
	}
	if len(decoded.Businesses) != 1 || len(decoded.Drafts) != 1 {
		t.Fatalf("unexpected entities: %+v", decoded)
	}
}

func TestBatchResponseBareArrayShape(t *testing.T) {
	payload := ` [{"nrNum": "NR 2222222", "stateCd": "CONDITIONAL"}]`

	var decoded BatchResponse
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.NameRequests) != 1 || decoded.NameRequests[0].NrNum != "NR 2222222" {
		t.Fatalf("unexpected requests: %+v", decoded.NameRequests)
	}
	if decoded.HasMore {
		t.Fatal("bare array carries no pagination")
	}
}

func TestNameRequestStatusPrefersStateCd(t *testing.T) {
	nr := NameRequest{State: "DRAFT", StateCd: "APPROVED"}
	if got := nr.Status(); got != "APPROVED" {
		t.Fatalf("Status() = %q, want APPROVED", got)
	}
	nr = NameRequest{State: "DRAFT"}
	if got := nr.Status(); got != "DRAFT" {
		t.Fatalf("Status() = %q, want DRAFT", got)
	}
}
