package pathmeta

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		marker      string
		path        string
		wantRepo    string
		wantProgram string
	}{
		{"marker layout", "", "home/me/dev/billing/billing-api/src/Program.cs", "billing-api", "billing"},
		{"windows separators", "", `C:\Users\me\Dev\Payments\payments-web\Controllers\HomeController.cs`, "payments-web", "payments"},
		{"marker too close to end", "", "dev/billing", "dev", "dev"},
		{"no marker", "", "src/Controllers/HomeController.cs", "src", "src"},
		{"hyphenated first segment", "", "orders-service/Program.cs", "orders-service", "orders"},
		{"custom marker", "code", "code/team/team-repo/a.go", "team-repo", "team"},
		{"custom marker absent", "code", "dev/team/team-repo/a.go", "dev", "dev"},
		{"empty path", "", "", Unknown, Unknown},
		{"absolute path", "", "/opt/app/x.go", Unknown, Unknown},
		{"leading hyphen", "", "-odd/file.txt", "-odd", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, program := NewResolver(tt.marker).Resolve(tt.path)
			if repo != tt.wantRepo {
				t.Errorf("repo = %q, want %q", repo, tt.wantRepo)
			}
			if program != tt.wantProgram {
				t.Errorf("program = %q, want %q", program, tt.wantProgram)
			}
		})
	}
}

func TestResolveNeverEmpty(t *testing.T) {
	inputs := []string{"", "/", "//", `\\`, "a", "dev", "dev/", "dev//", "a/dev/b/"}
	var r Resolver
	for _, in := range inputs {
		repo, program := r.Resolve(in)
		if repo == "" || program == "" {
			t.Errorf("Resolve(%q) = (%q, %q); identifiers must not be empty", in, repo, program)
		}
	}
}
