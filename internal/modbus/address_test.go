package modbus

import (
	"errors"
	"testing"
)

// TestParseAddressValid tests decoding a complete address blob
func TestParseAddressValid(t *testing.T) {
	blob := `{"slave_id":1,"function_code":3,"offset":4,"number_of_registers":2,"format":">f"}`

	addr, err := ParseAddress(blob)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if addr.SlaveID != 1 {
		t.Errorf("Expected SlaveID 1, got %d", addr.SlaveID)
	}
	if addr.FunctionCode != 3 {
		t.Errorf("Expected FunctionCode 3, got %d", addr.FunctionCode)
	}
	if addr.Offset != 4 {
		t.Errorf("Expected Offset 4, got %d", addr.Offset)
	}
	if addr.NumberOfRegisters != 2 {
		t.Errorf("Expected NumberOfRegisters 2, got %d", addr.NumberOfRegisters)
	}
	if addr.Format != ">f" {
		t.Errorf("Expected Format '>f', got %q", addr.Format)
	}
}

// TestParseAddressZeroRegisters tests that a zero quantity still validates;
// the read of a zero quantity fails and the point is skipped at read time
func TestParseAddressZeroRegisters(t *testing.T) {
	blob := `{"slave_id":1,"function_code":3,"offset":0,"number_of_registers":0,"format":">H"}`

	if _, err := ParseAddress(blob); err != nil {
		t.Errorf("Expected no error for zero registers, got %v", err)
	}
}

// TestParseAddressInvalid tests every per-field rejection
func TestParseAddressInvalid(t *testing.T) {
	cases := []struct {
		name string
		blob string
	}{
		{"malformed JSON", `{"slave_id":`},
		{"missing slave_id", `{"function_code":3,"offset":0,"number_of_registers":2,"format":">f"}`},
		{"missing format", `{"slave_id":1,"function_code":3,"offset":0,"number_of_registers":2}`},
		{"slave_id zero", `{"slave_id":0,"function_code":3,"offset":0,"number_of_registers":2,"format":">f"}`},
		{"function_code 9", `{"slave_id":1,"function_code":9,"offset":0,"number_of_registers":2,"format":">f"}`},
		{"negative offset", `{"slave_id":1,"function_code":3,"offset":-1,"number_of_registers":2,"format":">f"}`},
		{"negative registers", `{"slave_id":1,"function_code":3,"offset":0,"number_of_registers":-2,"format":">f"}`},
		{"empty format", `{"slave_id":1,"function_code":3,"offset":0,"number_of_registers":2,"format":""}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAddress(tc.blob)
			if err == nil {
				t.Fatalf("Expected error for %s, got none", tc.name)
			}
			var addrErr *AddressError
			if !errors.As(err, &addrErr) {
				t.Errorf("Expected AddressError, got %T", err)
			}
		})
	}
}
