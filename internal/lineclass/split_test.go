package lineclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitKeepsSimpleLines(t *testing.T) {
	for _, line := range []string{
		`name = "Harold"`,
		`traits = { 1 2 3 }`,
		`claim = { title = k_england }`,
		`character = {`,
		`{`,
		`}`,
		`1 2 3 }`,
		`flags = { a b`,
		`dynasties =`,
		`yes`,
	} {
		assert.Equal(t, []string{line}, Split(line), line)
	}
}

func TestSplitCompoundLines(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{
			`k_england = { b_england = { holder = 100 } }`,
			[]string{"k_england = {", "b_england = { holder = 100 }", "}"},
		},
		{
			`k_england = { b_england = { holder = 100 culture = saxon } }`,
			[]string{"k_england = {", "b_england = {", "holder = 100", "culture = saxon", "}", "}"},
		},
		{
			`flags = { }`,
			[]string{"flags = {", "}"},
		},
		{
			`name = "A = B" }`,
			[]string{`name = "A = B"`, "}"},
		},
		{
			`} }`,
			[]string{"}", "}"},
		},
		{
			`{ 1 2 3 }`,
			[]string{"{", "1 2 3 }"},
		},
		{
			`data = { color = { 10 20 30 } id = 4 }`,
			[]string{"data = {", "color = { 10 20 30 }", "id = 4", "}"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.line))
		})
	}
}

func TestSplitThenClassify(t *testing.T) {
	var kinds []Kind
	for _, seg := range Split(`a = { b = { c = d e = f } }`) {
		kinds = append(kinds, Classify(seg).Kind)
	}
	assert.Equal(t, []Kind{Open, Open, KeyValue, KeyValue, Close, Close}, kinds)
}
