package command

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solodevflow/solodev/internal/state"
)

func noopHandler(context.Context, Params, *state.State) (*Result, error) {
	return Succeed("ok", nil, ""), nil
}

func rollbackDef() *Definition {
	return &Definition{
		Name: "rollback",
		Params: []Param{
			{Name: "target-phase", Kind: KindString, Required: true, Enum: []string{"requirements", "architecture", "implementation"}},
			{Name: "reason", Kind: KindString, Required: true},
		},
		Handler: noopHandler,
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`rollback architecture "bug found"`, []string{"rollback", "architecture", "bug found"}},
		{`a  'single quoted'   b`, []string{"a", "single quoted", "b"}},
		{`--reason="two words"`, []string{"--reason=two words"}},
		{`empty "" arg`, []string{"empty", "", "arg"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestExtractName(t *testing.T) {
	name, err := ExtractName("  /status --verbose")
	require.NoError(t, err)
	assert.Equal(t, "status", name)

	_, err = ExtractName("status")
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)

	_, err = ExtractName("/")
	assert.ErrorAs(t, err, &pe)
}

func TestParse_Rollback(t *testing.T) {
	p, err := Parse(rollbackDef(), `/rollback architecture "bug found"`)
	require.NoError(t, err)
	assert.Equal(t, "architecture", p.String("target-phase"))
	assert.Equal(t, "bug found", p.String("reason"))

	_, err = Parse(rollbackDef(), `/rollback deployment "x"`)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "target-phase", pe.Details["param"])
	assert.Equal(t, "deployment", pe.Details["value"])

	_, err = Parse(rollbackDef(), "/rollback architecture bug found")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"found"}, pe.Details["unexpected"])
	assert.Equal(t, "unexpected arguments for /rollback: found (quote values that contain spaces)", pe.Error())
}

func TestParse_Resolution(t *testing.T) {
	def := &Definition{
		Name: "add-module",
		Params: []Param{
			{Name: "name", Kind: KindString, Required: true, Pattern: regexp.MustCompile(`^[a-z][a-z0-9-]*$`)},
			{Name: "depends-on", Kind: KindStringList},
			{Name: "priority", Kind: KindString, Enum: []string{"P0", "P1", "P2"}, Default: "P1"},
			{Name: "foundation", Kind: KindBool, Default: false},
		},
		Handler: noopHandler,
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, p Params)
	}{
		{
			name:  "positional and defaults",
			input: "/add-module auth",
			check: func(t *testing.T, p Params) {
				assert.Equal(t, "auth", p.String("name"))
				assert.Equal(t, "P1", p.String("priority"))
				assert.False(t, p.Bool("foundation"))
				assert.False(t, p.Has("depends-on"))
			},
		},
		{
			name:  "named wins over positional",
			input: "/add-module api --name billing --priority P0",
			check: func(t *testing.T, p Params) {
				assert.Equal(t, "billing", p.String("name"))
				assert.Equal(t, []string{"api"}, p.List("depends-on"))
				assert.Equal(t, "P0", p.String("priority"))
			},
		},
		{
			name:  "list is split and trimmed",
			input: "/add-module api --depends-on 'core, auth,,'",
			check: func(t *testing.T, p Params) {
				assert.Equal(t, []string{"core", "auth"}, p.List("depends-on"))
			},
		},
		{
			name:  "bare flag is true",
			input: "/add-module core --foundation",
			check: func(t *testing.T, p Params) {
				assert.True(t, p.Bool("foundation"))
			},
		},
		{
			name:  "bare flag followed by flag",
			input: "/add-module core --foundation --priority P2",
			check: func(t *testing.T, p Params) {
				assert.True(t, p.Bool("foundation"))
				assert.Equal(t, "P2", p.String("priority"))
			},
		},
		{
			name:  "bool words",
			input: "/add-module core --foundation no",
			check: func(t *testing.T, p Params) {
				assert.False(t, p.Bool("foundation"))
				assert.True(t, p.Has("foundation"))
			},
		},
		{name: "missing required", input: "/add-module", wantErr: true},
		{name: "pattern violation", input: "/add-module Auth_Module", wantErr: true},
		{name: "enum violation", input: "/add-module auth --priority P9", wantErr: true},
		{name: "bad bool", input: "/add-module auth --foundation maybe", wantErr: true},
		{name: "unknown flag", input: "/add-module auth --color red", wantErr: true},
		{name: "extra positional", input: "/add-module auth db P0 extra", wantErr: true},
		{name: "name mismatch", input: "/status", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(def, tt.input)
			if tt.wantErr {
				var pe *ParseError
				assert.ErrorAs(t, err, &pe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "add-module", p.Command)
			tt.check(t, p)
		})
	}
}
