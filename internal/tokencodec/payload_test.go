package tokencodec

import (
	"errors"
	"testing"
)

func TestParseTable(t *testing.T) {
	tests := []struct {
		in      string
		number  int
		stall   string
		wantErr error
	}{
		{"5", 5, "", nil},
		{"12:stall-9", 12, "stall-9", nil},
		{"999", 999, "", nil},
		{"0", 0, "", ErrTableRange},
		{"1000:s", 0, "", ErrTableRange},
		{"abc", 0, "", ErrFormat},
		{"", 0, "", ErrFormat},
		{" +5", 0, "", ErrFormat},
		{"+5", 0, "", ErrFormat},
		{"-3", 0, "", ErrFormat},
		{" 5", 0, "", ErrFormat},
		{"5 :stall", 0, "", ErrFormat},
		{"007", 7, "", nil},
	}

	for _, tt := range tests {
		n, stall, err := ParseTable(tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseTable(%q): expected %v, got %v", tt.in, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTable(%q) failed: %v", tt.in, err)
			continue
		}
		if n != tt.number || stall != tt.stall {
			t.Errorf("ParseTable(%q) = %d, %q; want %d, %q", tt.in, n, stall, tt.number, tt.stall)
		}
	}
}

func TestTableRangeIsFormatError(t *testing.T) {
	_, _, err := ParseTable("1000")
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected range error to also match ErrFormat, got %v", err)
	}
}

func TestParseCustomer(t *testing.T) {
	c, err := ParseCustomer("Ani|0811|ani@example.com|no ice|extra cup")
	if err != nil {
		t.Fatalf("ParseCustomer failed: %v", err)
	}
	if c.Name != "Ani" || c.Phone != "0811" || c.Email != "ani@example.com" {
		t.Errorf("Unexpected customer: %+v", c)
	}
	if c.Note != "no ice|extra cup" {
		t.Errorf("Expected note to keep inner separators, got %q", c.Note)
	}

	c, err = ParseCustomer("Ani|0811|")
	if err != nil {
		t.Fatalf("ParseCustomer with trailing empty segment failed: %v", err)
	}
	if c.Email != "" || c.Note != "" {
		t.Errorf("Expected empty email and note, got %+v", c)
	}

	if _, err := ParseCustomer("Ani|0811"); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for two segments, got %v", err)
	}
}

func TestEncodeCustomerRejectsSeparatorInFields(t *testing.T) {
	_, err := EncodeCustomer(Customer{Name: "A|B", Phone: "1", Email: "e"})
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestCustomerTokenRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	in := Customer{Name: "Budi", Phone: "0812", Email: "budi@example.com", Note: "pedas"}

	token, err := c.EncryptCustomer(in)
	if err != nil {
		t.Fatalf("EncryptCustomer failed: %v", err)
	}
	out, err := c.DecryptCustomer(token)
	if err != nil {
		t.Fatalf("DecryptCustomer failed: %v", err)
	}
	if out != in {
		t.Errorf("Got %+v, want %+v", out, in)
	}
}

func TestTableTokenRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.EncryptTable(12, "stall-7")
	if err != nil {
		t.Fatalf("EncryptTable failed: %v", err)
	}
	n, stall, err := c.DecryptTable(token)
	if err != nil {
		t.Fatalf("DecryptTable failed: %v", err)
	}
	if n != 12 || stall != "stall-7" {
		t.Errorf("Got %d/%q, want 12/stall-7", n, stall)
	}

	if _, err := c.EncryptTable(0, ""); !errors.Is(err, ErrTableRange) {
		t.Errorf("Expected ErrTableRange, got %v", err)
	}
}
