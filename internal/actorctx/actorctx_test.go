package actorctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no user")
	}

	if _, ok := UserIDFrom(WithUserID(context.Background(), "")); ok {
		t.Fatalf("empty id should read as absent")
	}

	id, ok := UserIDFrom(WithUserID(context.Background(), "u-1"))
	if !ok || id != "u-1" {
		t.Fatalf("got %q, %v", id, ok)
	}
}
