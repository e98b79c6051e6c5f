// Package db keeps a local book of named contract addresses so commands can
// accept a human name instead of a raw address. The name doubles as the ABI
// name hint for legacy flat cache files.
package db

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// AddressBook maps human names to contract addresses, loaded from a flat
// JSON object file ({"name": "0x..."}).
type AddressBook struct {
	data map[string]string
}

// Load reads the book at path. A missing file yields an empty book, not an
// error, so the CLI works before any address is registered.
func Load(path string) (*AddressBook, error) {
	book := &AddressBook{data: map[string]string{}}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return book, nil
		}
		return nil, errors.Wrapf(err, "reading address book %s", path)
	}
	if err = json.Unmarshal(content, &book.data); err != nil {
		return nil, errors.Wrapf(err, "parsing address book %s", path)
	}
	return book, nil
}

func (self *AddressBook) Len() int {
	return len(self.data)
}

// GetAddress fuzzy-matches input against the book and returns the best hit.
func (self *AddressBook) GetAddress(input string) (AddressDesc, error) {
	source := NewFuzzySource(self)
	matches, _ := getAddressMatches(input, source)
	if len(matches) == 0 {
		return AddressDesc{}, fmt.Errorf("no address found in the book for '%s'", input)
	}
	return matches[0], nil
}

// GetAddresses returns up to 10 fuzzy matches with their scores.
func (self *AddressBook) GetAddresses(input string) ([]AddressDesc, []int) {
	return getAddressMatches(input, NewFuzzySource(self))
}
