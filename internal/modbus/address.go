package modbus

import (
	"encoding/json"
	"fmt"
)

// Address is a validated point address. Only validated addresses reach
// the session; ParseAddress is the single way to obtain one.
type Address struct {
	SlaveID           uint8
	FunctionCode      uint8
	Offset            uint16
	NumberOfRegisters uint16
	Format            string
}

// AddressError reports an unusable point address
type AddressError struct {
	Reason string
}

// Error implements the error interface
func (e *AddressError) Error() string {
	return "invalid point address: " + e.Reason
}

// rawAddress uses pointers so missing keys are distinguishable from
// zero values.
type rawAddress struct {
	SlaveID           *int    `json:"slave_id"`
	FunctionCode      *int    `json:"function_code"`
	Offset            *int    `json:"offset"`
	NumberOfRegisters *int    `json:"number_of_registers"`
	Format            *string `json:"format"`
}

// ParseAddress decodes a point's address blob and validates every field
func ParseAddress(blob string) (Address, error) {
	var raw rawAddress
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return Address{}, &AddressError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	if raw.SlaveID == nil || raw.FunctionCode == nil || raw.Offset == nil ||
		raw.NumberOfRegisters == nil || raw.Format == nil {
		return Address{}, &AddressError{Reason: "missing required key"}
	}
	if *raw.SlaveID < 1 || *raw.SlaveID > 255 {
		return Address{}, &AddressError{Reason: fmt.Sprintf("slave_id %d out of range", *raw.SlaveID)}
	}
	switch *raw.FunctionCode {
	case 1, 2, 3, 4:
	default:
		return Address{}, &AddressError{Reason: fmt.Sprintf("unsupported function_code %d", *raw.FunctionCode)}
	}
	if *raw.Offset < 0 || *raw.Offset > 0xFFFF {
		return Address{}, &AddressError{Reason: fmt.Sprintf("offset %d out of range", *raw.Offset)}
	}
	if *raw.NumberOfRegisters < 0 || *raw.NumberOfRegisters > 0xFFFF {
		return Address{}, &AddressError{Reason: fmt.Sprintf("number_of_registers %d out of range", *raw.NumberOfRegisters)}
	}
	if len(*raw.Format) < 1 {
		return Address{}, &AddressError{Reason: "empty format"}
	}

	return Address{
		SlaveID:           uint8(*raw.SlaveID),
		FunctionCode:      uint8(*raw.FunctionCode),
		Offset:            uint16(*raw.Offset),
		NumberOfRegisters: uint16(*raw.NumberOfRegisters),
		Format:            *raw.Format,
	}, nil
}
