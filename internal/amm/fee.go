package amm

import "fmt"

// Fee is the proportional trading fee taken from the input side, expressed as
// Numerator/Denominator. The deployed exchange keeps 99/100 of the input,
// which is Fee{Numerator: 1, Denominator: 100}.
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

// DefaultFee matches the deployed exchange contract.
var DefaultFee = Fee{Numerator: 1, Denominator: 100}

// Validate checks that the fee is a proper fraction.
func (f Fee) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("%w: zero denominator", ErrInvalidFee)
	}
	if f.Numerator >= f.Denominator {
		return fmt.Errorf("%w: %d/%d takes the whole input", ErrInvalidFee, f.Numerator, f.Denominator)
	}
	return nil
}

func (f Fee) keep() uint64 {
	return f.Denominator - f.Numerator
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}
