package command

import (
	"slices"
	"strings"
	"unicode"
)

// Tokenize splits s on whitespace. Single or double quotes group words into
// one token; the quotes themselves are dropped.
func Tokenize(s string) []string {
	var (
		tokens  []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// ExtractName returns the command name from a slash command.
func ExtractName(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return "", newParseError(map[string]any{"input": input}, "command must start with /: %q", input)
	}
	tokens := Tokenize(trimmed[1:])
	if len(tokens) == 0 || tokens[0] == "" {
		return "", newParseError(map[string]any{"input": input}, "missing command name")
	}
	return tokens[0], nil
}

// Parse validates input against def and resolves every parameter. Named
// arguments win over positionals, which win over defaults. Positional
// arguments fill non-boolean parameters in declaration order.
func Parse(def *Definition, input string) (Params, error) {
	name, err := ExtractName(input)
	if err != nil {
		return Params{}, err
	}
	if name != def.Name {
		return Params{}, newParseError(map[string]any{"expected": def.Name, "got": name},
			"command name mismatch: expected %s, got %s", def.Name, name)
	}

	tokens := Tokenize(strings.TrimSpace(input)[1:])[1:]
	named := map[string]string{}
	var positional []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "--") || len(tok) == 2 {
			positional = append(positional, tok)
			continue
		}
		key := tok[2:]
		if k, v, ok := strings.Cut(key, "="); ok {
			named[k] = v
			continue
		}
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
			named[key] = tokens[i+1]
			i++
			continue
		}
		named[key] = "true"
	}

	for key := range named {
		if !slices.ContainsFunc(def.Params, func(p Param) bool { return p.Name == key }) {
			return Params{}, newParseError(map[string]any{"param": key}, "unknown parameter --%s for /%s", key, def.Name)
		}
	}

	values := map[string]any{}
	next := 0
	for _, p := range def.Params {
		raw, ok := named[p.Name]
		if !ok && p.Kind != KindBool && next < len(positional) {
			raw, ok = positional[next], true
			next++
		}
		if !ok {
			if p.Default != nil {
				values[p.Name] = p.Default
				continue
			}
			if p.Required {
				return Params{}, newParseError(map[string]any{"param": p.Name}, "missing required parameter: %s", p.Name)
			}
			continue
		}

		v, err := convert(p, raw)
		if err != nil {
			return Params{}, err
		}
		values[p.Name] = v
	}
	if next < len(positional) {
		extra := positional[next:]
		return Params{}, newParseError(map[string]any{"unexpected": extra},
			"unexpected arguments for /%s: %s (quote values that contain spaces)", def.Name, strings.Join(extra, " "))
	}

	return Params{Command: def.Name, values: values}, nil
}

// convert turns a raw token into the parameter's typed value and validates it.
func convert(p Param, raw string) (any, error) {
	switch p.Kind {
	case KindBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, newParseError(map[string]any{"param": p.Name, "value": raw},
			"parameter %s must be a boolean, got %q", p.Name, raw)

	case KindStringList:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if err := checkValue(p, item); err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if items == nil {
			items = []string{}
		}
		return items, nil

	default:
		if err := checkValue(p, raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
}

func checkValue(p Param, v string) error {
	if len(p.Enum) > 0 && !slices.Contains(p.Enum, v) {
		return newParseError(map[string]any{"param": p.Name, "value": v, "allowed": p.Enum},
			"parameter %s must be one of [%s], got %q", p.Name, strings.Join(p.Enum, ", "), v)
	}
	if p.Pattern != nil && !p.Pattern.MatchString(v) {
		return newParseError(map[string]any{"param": p.Name, "value": v, "pattern": p.Pattern.String()},
			"parameter %s does not match %s: %q", p.Name, p.Pattern, v)
	}
	return nil
}
