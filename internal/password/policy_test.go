package password

import "testing"

func TestMeets(t *testing.T) {
	tests := []struct {
		name string
		pw   string
		want bool
	}{
		{"empty", "", false},
		{"too short", "Ab1!", false},
		{"length only", "aaaaaaaa", false},
		{"two classes", "abcdefg1", false},
		{"three classes", "Abcdefg1", true},
		{"four classes", "Abcdef1!", true},
		{"three classes no upper", "abcdef1!", true},
		{"long two classes", "abcdefghij123456", false},
		{"padding does not add length or a class", "  abcdef1  ", false},
		{"padded but valid after trimming", " Abcdefg1 ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultPolicy.Meets(tt.pw); got != tt.want {
				t.Errorf("Meets(%q) = %v, want %v", tt.pw, got, tt.want)
			}
		})
	}
}

func TestScoreAndLabel(t *testing.T) {
	tests := []struct {
		pw        string
		wantScore int
		wantLabel string
	}{
		{"", 0, "Very weak"},
		{"abc", 20, "Weak"},
		{"abc1", 40, "Fair"},
		{"Abc1", 60, "Good"},
		{"Abcdefg1", 80, "Strong"},
		{"Abcdef1!", 100, "Strong"},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			if got := DefaultPolicy.Score(tt.pw); got != tt.wantScore {
				t.Errorf("Score(%q) = %d, want %d", tt.pw, got, tt.wantScore)
			}
			if got := DefaultPolicy.Label(tt.pw); got != tt.wantLabel {
				t.Errorf("Label(%q) = %q, want %q", tt.pw, got, tt.wantLabel)
			}
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	strict := Policy{MinLength: 12, MinClasses: 4, Classes: classRules}
	if strict.Meets("Abcdef1!") {
		t.Error("8 chars should not meet a 12-char policy")
	}
	if !strict.Meets("Abcdefghij1!") {
		t.Error("12 chars with all classes should meet the strict policy")
	}
}
