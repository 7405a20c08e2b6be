package dto_test

import (
	"testing"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
)

func TestOutcomeLocation(t *testing.T) {
	o := &dto.Outcome{Redirect: "/users/login", Message: "Login first!"}
	if got := o.Location(); got != "/users/login?message=Login+first%21" {
		t.Fatalf("unexpected location: %s", got)
	}

	o = &dto.Outcome{Redirect: "/"}
	if got := o.Location(); got != "/" {
		t.Fatalf("unexpected location: %s", got)
	}
}
