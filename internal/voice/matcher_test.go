package voice

import "testing"

func TestMatchFieldScores(t *testing.T) {
	page := PageContext{Fields: []Field{
		{ID: "phone", Placeholder: "Numéro de téléphone"},
		{ID: "email", Name: "user_email", Type: "email"},
		{Name: "confirm", Label: "Confirmer l'email"},
	}}
	tests := []struct {
		spoken string
		want   string
	}{
		{"email", "email"},
		{"E Mail", "email"},
		{"telephone", "phone"},
		{"confirmer", "confirm"},
		{"adresse email principale", "email"},
		{"inconnu", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := MatchField(tc.spoken, page); got != tc.want {
			t.Fatalf("MatchField(%q) = %q, want %q", tc.spoken, got, tc.want)
		}
	}
}

func TestMatchFieldTiesKeepFirstField(t *testing.T) {
	page := PageContext{Fields: []Field{
		{ID: "home_address"},
		{ID: "work_address"},
	}}
	if got := MatchField("address", page); got != "home_address" {
		t.Fatalf("expected first field on a tie, got %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	page := PageContext{Fields: []Field{{ID: "contactMail"}, {ID: "city"}}}
	if got := FormatValue("Jean a example.com", page, "contactMail"); got != "jean@example.com" {
		t.Fatalf("unexpected email value %q", got)
	}
	if got := FormatValue(" Tunis centre ", page, "city"); got != "Tunis centre" {
		t.Fatalf("unexpected plain value %q", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Arrête   TOUT ", "arrete tout"},
		{"test at example dot com", "test@example.com"},
		{"va à la maison", "va a la maison"},
		{"écris test à gmail.com", "ecris test@gmail.com"},
		{"l’élève", "l'eleve"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
