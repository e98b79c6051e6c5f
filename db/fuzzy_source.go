package db

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

type AddressDesc struct {
	Address string
	Desc    string
}

type FuzzySource []AddressDesc

func (self FuzzySource) Len() int {
	return len(self)
}

func (self FuzzySource) String(i int) string {
	return fmt.Sprintf("%s_%s", strings.Replace(self[i].Desc, " ", "_", -1), self[i].Address)
}

func NewFuzzySource(book *AddressBook) FuzzySource {
	result := FuzzySource{}
	for name, addr := range book.data {
		result = append(result, AddressDesc{
			Address: addr,
			Desc:    name,
		})
	}
	// map iteration order is random; keep matches stable across calls
	sort.Slice(result, func(i, j int) bool { return result[i].Desc < result[j].Desc })
	return result
}

func getAddressMatches(input string, source FuzzySource) ([]AddressDesc, []int) {
	matches := fuzzy.FindFrom(strings.Replace(input, " ", "_", -1), source)
	result := []AddressDesc{}
	scores := []int{}
	for i := 0; i < 10; i++ {
		if i < len(matches) {
			result = append(result, source[matches[i].Index])
			scores = append(scores, matches[i].Score)
		} else {
			break
		}
	}
	return result, scores
}
