package toc

import (
	"strings"
	"testing"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
)

func TestSplitCamel(t *testing.T) {
	tests := map[string]string{
		"OrderController":      "Order Controller",
		"HTTPServer":           "HTTP Server",
		"order":                "order",
		"Order2Controller":     "Order 2 Controller",
		"IOrderRepositoryImpl": "I Order Repository Impl",
		"":                     "",
	}
	for in, want := range tests {
		if got := strings.Join(SplitCamel(in), " "); got != want {
			t.Errorf("SplitCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchTerms(t *testing.T) {
	got := SearchTerms("Where is the OrderController? order")
	want := []string{"where", "is", "the", "ordercontroller", "order", "controller"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("SearchTerms = %v, want %v", got, want)
	}
	if len(SearchTerms("-- ?")) != 0 {
		t.Error("punctuation-only query should have no terms")
	}
}

func TestIndexTerms(t *testing.T) {
	got := IndexTerms(feature.Record{Path: `src\Controllers\HomeController.cs`})
	want := "src controllers homecontroller home controller cs"
	if got != want {
		t.Errorf("IndexTerms = %q, want %q", got, want)
	}
}

func TestValidateK(t *testing.T) {
	for k, ok := range map[int]bool{0: false, 1: true, 10: true, 50: true, 51: false} {
		if err := ValidateK(k); (err == nil) != ok {
			t.Errorf("ValidateK(%d) = %v", k, err)
		}
	}
}
