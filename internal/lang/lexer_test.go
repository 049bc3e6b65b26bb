package lang

import "testing"

func tokenKinds(t *testing.T, toks []Token) []Kind {
	t.Helper()

	kinds := make([]Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}

	return kinds
}

func TestLexerKeywordsCaseInsensitive(t *testing.T) {
	lex := NewLexer([]byte("byte Card IF fi\n"))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	want := []Kind{Byte, Card, If, Fi, Newline, EOF}

	got := tokenKinds(t, toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}

	for i, k := range want {
		if got[i] != k {
			t.Errorf("token %d: got %s, want %s", i, got[i], k)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	lex := NewLexer([]byte("100 $FF $ff"))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	want := []int32{100, 255, 255}

	var got []int32
	for _, tok := range toks {
		if tok.Kind == Number {
			got = append(got, tok.NumVal)
		}
	}

	if len(got) != len(want) {
		t.Fatalf("got %d numbers, want %d", len(got), len(want))
	}

	for i, v := range want {
		if got[i] != v {
			t.Errorf("number %d: got %d, want %d", i, got[i], v)
		}
	}
}

func TestLexerString(t *testing.T) {
	lex := NewLexer([]byte(`"hello"`))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	if toks[0].Kind != String || toks[0].StrVal != "hello" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	lex := NewLexer([]byte("\"hello\n"))

	_, err := lex.Tokenize()
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestLexerCharLiteral(t *testing.T) {
	lex := NewLexer([]byte("'a'"))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	if toks[0].Kind != Char || toks[0].CharVal != 'a' {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestLexerMultiCharOperators(t *testing.T) {
	lex := NewLexer([]byte("< <= <> > >="))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	want := []Kind{Less, LessEqual, NotEqual, Greater, GreaterEqual, EOF}

	got := tokenKinds(t, toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}

	for i, k := range want {
		if got[i] != k {
			t.Errorf("token %d: got %s, want %s", i, got[i], k)
		}
	}
}

func TestLexerComment(t *testing.T) {
	lex := NewLexer([]byte("BYTE x ; this is ignored\nCARD y"))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	want := []Kind{Byte, Ident, Newline, Card, Ident, EOF}

	got := tokenKinds(t, toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
}

func TestLexerUnknownCharacterRecovers(t *testing.T) {
	lex := NewLexer([]byte("BYTE x = 1 ~ CARD y"))

	toks, err := lex.Tokenize()
	if err == nil {
		t.Fatal("expected lex error for '~'")
	}

	found := false

	for _, tok := range toks {
		if tok.Kind == Card {
			found = true
		}
	}

	if !found {
		t.Fatal("expected lexer to resynchronize and keep scanning after the bad character")
	}
}
