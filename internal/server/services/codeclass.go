package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

// FoundCodeClass is a prize tier of mini-game codes.
type FoundCodeClass struct {
	Name   string
	GB     float64
	Weight float64
}

// FoundCodeClasses lists the prize tiers from most to least common.
var FoundCodeClasses = []FoundCodeClass{
	{Name: "1gb", GB: 1, Weight: 5},
	{Name: "2gb", GB: 2, Weight: 3},
	{Name: "3gb", GB: 3, Weight: 1},
	{Name: "4gb", GB: 4, Weight: 0.7},
	{Name: "5gb", GB: 5, Weight: 0.25},
	{Name: "10gb", GB: 10, Weight: 0.05},
}

// FindCodeClass returns the class with the given name.
func FindCodeClass(name string) (FoundCodeClass, bool) {
	for _, c := range FoundCodeClasses {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return FoundCodeClass{}, false
}

// weightResolution turns fractional weights into integers for crypto/rand.
const weightResolution = 1000

// PickCodeClass draws a class with probability proportional to its weight.
func PickCodeClass() (FoundCodeClass, error) {
	var total int64
	for _, c := range FoundCodeClasses {
		total += int64(c.Weight * weightResolution)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(total))
	if err != nil {
		return FoundCodeClass{}, err
	}
	return classAt(n.Int64()), nil
}

// classAt maps a point in [0, total weight) to its class.
func classAt(point int64) FoundCodeClass {
	for _, c := range FoundCodeClasses {
		w := int64(c.Weight * weightResolution)
		if point < w {
			return c
		}
		point -= w
	}
	return FoundCodeClasses[len(FoundCodeClasses)-1]
}

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewCode returns a code of the form SC-XXXX-XXXX-XXXX.
func NewCode() (string, error) {
	parts := make([]string, 3)
	for i := range parts {
		seg, err := common.MakeRandString(codeAlphabet, 4)
		if err != nil {
			return "", err
		}
		parts[i] = seg
	}
	return fmt.Sprintf("SC-%s-%s-%s", parts[0], parts[1], parts[2]), nil
}

// normalizeCode upper-cases and trims user input.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
