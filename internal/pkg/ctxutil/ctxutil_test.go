package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestSessionDataRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx := WithSessionData(context.Background(), &SessionData{SessionID: id})
	sd := GetSessionData(ctx)
	if sd == nil || sd.SessionID != id {
		t.Fatalf("GetSessionData()=%v, want session %s", sd, id)
	}
	if GetTraceData(ctx) != nil {
		t.Fatalf("trace data should be absent")
	}
}

func TestGetOnNilContext(t *testing.T) {
	if GetSessionData(nil) != nil {
		t.Fatalf("expected nil session data for nil context")
	}
}
