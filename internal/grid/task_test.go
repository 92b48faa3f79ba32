package grid

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		exempt []string
		want   string
	}{
		{"plain ascii untouched", "Notepad - file.txt", nil, "Notepad - file.txt"},
		{"nbsp collapsed", "Word\u00a0Document", nil, "Word Document"},
		{"zero width collapsed", "App\u200bName", nil, "App Name"},
		{"narrow nbsp collapsed", "10\u202f:\u202f30", nil, "10 : 30"},
		{"mixed odd spaces", "a\u2002b\u2003c", nil, "a b c"},
		{"exempt bypasses", "Cool\u00a0App", []string{"Cool"}, "Cool\u00a0App"},
		{"non-matching exempt normalizes", "Cool\u00a0App", []string{"Other"}, "Cool App"},
		{"empty exempt entry ignored", "A\u00a0B", []string{""}, "A B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in, tt.exempt); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassNameResolvedLazily(t *testing.T) {
	calls := 0
	task := NewWindowTask(7, "Editor", func(window uint32) string {
		calls++
		return "EditorClass"
	})

	if calls != 0 {
		t.Fatal("class resolved eagerly")
	}
	if got := task.ClassName(); got != "EditorClass" {
		t.Errorf("class = %q", got)
	}
	task.ClassName()
	if calls != 1 {
		t.Errorf("resolver called %d times, want 1", calls)
	}
}

func TestAdoptClassSharesResolution(t *testing.T) {
	calls := 0
	w := NewWindowTask(7, "Music", func(uint32) string {
		calls++
		return "Player"
	})
	w.ClassName()

	b := NewButtonTask(0, "Music")
	b.Window = 7
	b.AdoptClass(w)

	if got := b.ClassName(); got != "Player" {
		t.Errorf("adopted class = %q, want Player", got)
	}
	if calls != 1 {
		t.Errorf("resolver called %d times, want 1", calls)
	}
}

func TestButtonTaskHasNoClass(t *testing.T) {
	b := NewButtonTask(0, "Music")
	if got := b.ClassName(); got != "" {
		t.Errorf("button class = %q, want empty", got)
	}
	if b.Associated() != 0 {
		t.Errorf("unmatched button associated = %d, want 0", b.Associated())
	}
}
