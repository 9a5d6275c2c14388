package replay

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ParseAddress rejects anything that is not a 20-byte hex address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// optionalAddress parses input, or returns the zero address when it is empty.
func optionalAddress(input string) (common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return common.Address{}, nil
	}
	return ParseAddress(input)
}

func parseAmount(field, input string) (*uint256.Int, error) {
	v, err := fixedpoint.ParseDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func requireAmount(field, input string) (*uint256.Int, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	return parseAmount(field, input)
}
