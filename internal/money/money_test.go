package money

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "£0.00"},
		{20, "£20.00"},
		{1234.5, "£1,234.50"},
		{1234567.891, "£1,234,567.89"},
		{-20, "-£20.00"},
		{-0.001, "£0.00"},
		{999.995, "£1,000.00"},
	}
	for _, tt := range tests {
		if got := Format("£", tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFixed2(t *testing.T) {
	if got := Fixed2(12.3); got != "12.30" {
		t.Errorf("Fixed2(12.3) = %q, want %q", got, "12.30")
	}
	if got := Fixed2(0.1 + 0.2); got != "0.30" {
		t.Errorf("Fixed2(0.1+0.2) = %q, want %q", got, "0.30")
	}
}

func TestConvert(t *testing.T) {
	if got := Convert(10, 43.5); got != 435 {
		t.Errorf("Convert(10, 43.5) = %v, want 435", got)
	}
	if got := ConvertBack(435, 43.5); got != 10 {
		t.Errorf("ConvertBack(435, 43.5) = %v, want 10", got)
	}
	if got := ConvertBack(10, 0); got != 0 {
		t.Errorf("ConvertBack with zero rate = %v, want 0", got)
	}
}
