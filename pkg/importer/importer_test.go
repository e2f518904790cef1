package importer_test

import (
	"errors"
	"testing"

	"github.com/shashiranjanraj/vayu/pkg/importer"
)

func TestRegisterAndResolve(t *testing.T) {
	importer.Register("importer_test/pkg:Value", 42)

	v, err := importer.FromString("importer_test/pkg:Value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("got %v, want 42", v)
	}
}

func TestLaterRegistrationWins(t *testing.T) {
	importer.Register("importer_test/pkg:Replaced", "first")
	importer.Register("importer_test/pkg:Replaced", "second")

	v, _ := importer.FromString("importer_test/pkg:Replaced")
	if v != "second" {
		t.Errorf("got %v, want second", v)
	}
}

func TestMalformedReference(t *testing.T) {
	_, err := importer.FromString("no-colon-here")
	if err == nil {
		t.Fatal("expected an error for a malformed reference")
	}
	var importErr *importer.Error
	if !errors.As(err, &importErr) {
		t.Fatalf("expected *importer.Error, got %T", err)
	}
}

func TestUnknownReference(t *testing.T) {
	_, err := importer.FromString("importer_test/pkg:Missing")
	if err == nil {
		t.Fatal("expected an error for an unregistered reference")
	}
}
