package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenIdent
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
	tokenDot
	tokenNot       // !
	tokenAnd       // &&
	tokenOr        // ||
	tokenEq        // ==
	tokenNotEq     // !=
	tokenGreater   // >
	tokenLess      // <
	tokenGreaterEq // >=
	tokenLessEq    // <=
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenPercent
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits an expression into tokens. It accepts only the operators
// of the guard grammar; anything else is a lex error.
func tokenize(src string) ([]token, error) {
	tokens := make([]token, 0, len(src)/2)
	runes := []rune(src)
	i := 0

	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokenLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokenRParen, ")", i})
			i++
		case r == '[':
			tokens = append(tokens, token{tokenLBracket, "[", i})
			i++
		case r == ']':
			tokens = append(tokens, token{tokenRBracket, "]", i})
			i++
		case r == ',':
			tokens = append(tokens, token{tokenComma, ",", i})
			i++
		case r == '.' && (i+1 >= len(runes) || !unicode.IsDigit(runes[i+1])):
			tokens = append(tokens, token{tokenDot, ".", i})
			i++
		case r == '+':
			tokens = append(tokens, token{tokenPlus, "+", i})
			i++
		case r == '-':
			tokens = append(tokens, token{tokenMinus, "-", i})
			i++
		case r == '*':
			tokens = append(tokens, token{tokenStar, "*", i})
			i++
		case r == '/':
			tokens = append(tokens, token{tokenSlash, "/", i})
			i++
		case r == '%':
			tokens = append(tokens, token{tokenPercent, "%", i})
			i++
		case r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenNotEq, "!=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenNot, "!", i})
				i++
			}
		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenEq, "==", i})
				i += 2
			} else {
				return nil, fmt.Errorf("position %d: single '=' is not a valid operator, use '=='", i)
			}
		case r == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenGreaterEq, ">=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenGreater, ">", i})
				i++
			}
		case r == '<':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenLessEq, "<=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenLess, "<", i})
				i++
			}
		case r == '&':
			if i+1 < len(runes) && runes[i+1] == '&' {
				tokens = append(tokens, token{tokenAnd, "&&", i})
				i += 2
			} else {
				return nil, fmt.Errorf("position %d: single '&' is not a valid operator", i)
			}
		case r == '|':
			if i+1 < len(runes) && runes[i+1] == '|' {
				tokens = append(tokens, token{tokenOr, "||", i})
				i += 2
			} else {
				return nil, fmt.Errorf("position %d: single '|' is not a valid operator", i)
			}
		case r == '\'' || r == '"':
			text, next, err := lexString(runes, i)
			if err != nil {
				return nil, err
			}

			tokens = append(tokens, token{tokenString, text, i})
			i = next
		case unicode.IsDigit(r) || r == '.':
			text, next, err := lexNumber(runes, i)
			if err != nil {
				return nil, err
			}

			tokens = append(tokens, token{tokenNumber, text, i})
			i = next
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}

			tokens = append(tokens, token{tokenIdent, string(runes[start:i]), start})
		default:
			return nil, fmt.Errorf("position %d: unexpected character %q", i, r)
		}
	}

	tokens = append(tokens, token{tokenEOF, "", len(runes)})

	return tokens, nil
}

func lexString(runes []rune, start int) (string, int, error) {
	quote := runes[start]

	var sb strings.Builder

	i := start + 1
	for i < len(runes) {
		r := runes[i]

		if r == '\\' && i+1 < len(runes) {
			next := runes[i+1]
			switch next {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\', '\'', '"':
				sb.WriteRune(next)
			default:
				return "", 0, fmt.Errorf("position %d: unsupported escape \\%c", i, next)
			}

			i += 2

			continue
		}

		if r == quote {
			return sb.String(), i + 1, nil
		}

		sb.WriteRune(r)
		i++
	}

	return "", 0, fmt.Errorf("position %d: unterminated string literal", start)
}

func lexNumber(runes []rune, start int) (string, int, error) {
	i := start
	seenDot := false

	for i < len(runes) {
		r := runes[i]

		if unicode.IsDigit(r) {
			i++

			continue
		}

		if r == '.' {
			if seenDot {
				return "", 0, fmt.Errorf("position %d: malformed number", start)
			}

			seenDot = true
			i++

			continue
		}

		break
	}

	return string(runes[start:i]), i, nil
}
