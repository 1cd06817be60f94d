package dto

import (
	"errors"
	"testing"

	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(RegisterRequest{Name: "A", Email: "not-an-email", Password: "pw", Role: "admin"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := apperrors.ToDomainError(err).Details
	if details["email"] != "email" {
		t.Errorf("email rule missing: %+v", details)
	}
	if details["role"] != "oneof=client agent" {
		t.Errorf("role rule missing: %+v", details)
	}
	if _, ok := details["name"]; ok {
		t.Errorf("valid field reported: %+v", details)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(CreateTicketRequest{Title: "Printer jam", Description: "tray 2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(TicketListQuery{PageSize: 500}); err == nil {
		t.Fatal("expected page_size bound to be enforced")
	}
}

func TestCommentTextFallsBackToMessage(t *testing.T) {
	cases := []struct {
		req  CreateCommentRequest
		want string
	}{
		{CreateCommentRequest{Content: "hi"}, "hi"},
		{CreateCommentRequest{Message: "legacy"}, "legacy"},
		{CreateCommentRequest{Content: " ", Message: "legacy"}, "legacy"},
		{CreateCommentRequest{Content: "a", Message: "b"}, "a"},
	}
	for _, tc := range cases {
		if got := tc.req.Text(); got != tc.want {
			t.Errorf("Text() = %q, want %q", got, tc.want)
		}
	}
}
