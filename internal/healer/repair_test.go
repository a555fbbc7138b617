package healer

import (
	"encoding/json"
	"testing"
)

func TestSteps(t *testing.T) {
	cases := []struct {
		name string
		step Step
		in   string
		want string
	}{
		{"trim prose around object", TrimToObject, "Voici le JSON:\n{\"a\": {\"b\": 1}} Bonne chance {x}", `{"a": {"b": 1}}`},
		{"trim ignores braces in strings", TrimToObject, `xx{"a": "}"} tail`, `{"a": "}"}`},
		{"trim unbalanced keeps up to last brace", TrimToObject, `{"q": [{"a": 1}, {"b": tail`, `{"q": [{"a": 1}`},
		{"trim unbalanced without brace keeps rest", TrimToObject, `ok {"q": "x`, `{"q": "x`},
		{"trim no object", TrimToObject, "no json here", ""},
		{"control chars", StripControlChars, "{\"a\":\r\n\"b\x00c\x07\"}", "{\"a\":\n\"b c \"}"},
		{"merge broken object string", MergeBrokenStrings, "{\"question\": \"Quelle est\"\n  \"la capitale ?\"}", `{"question": "Quelle est la capitale ?"}`},
		{"merge broken array strings", MergeBrokenStrings, "[\"A) a\"\n\"B) b\"]", `["A) a", "B) b"]`},
		{"merge leaves same-line strings", MergeBrokenStrings, `{"a": "x" "y"}`, `{"a": "x" "y"}`},
		{"array newlines", StripArrayNewlines, "[\n  \"a\",\n  \"b\"\n]", "[  \"a\",\n  \"b\"]"},
		{"flatten string newlines", FlattenStringNewlines, "{\"e\": \"l1\nl2\tx\"}\n", "{\"e\": \"l1 l2 x\"}\n"},
		{"flatten escaped newline", FlattenStringNewlines, "{\"e\": \"a\\\nb\"}", `{"e": "a\nb"}`},
		{"close open string", CloseOpenString, `{"e": "trunc`, `{"e": "trunc"`},
		{"close open string drops dangling escape", CloseOpenString, `{"e": "trunc\`, `{"e": "trunc"`},
		{"close string noop", CloseOpenString, `{"e": "ok"}`, `{"e": "ok"}`},
		{"close brackets in nesting order", CloseBrackets, `{"q": [{"c": ["a"`, `{"q": [{"c": ["a"]}]}`},
		{"close brackets ignores strings", CloseBrackets, `{"q": "[{"`, `{"q": "[{"}`},
		{"trailing commas", RemoveTrailingCommas, `{"a": [1, 2, ], "b": 3 ,}`, `{"a": [1, 2 ], "b": 3 }`},
		{"trailing comma runs", RemoveTrailingCommas, `[1,, ]`, `[1 ]`},
		{"trailing comma in string kept", RemoveTrailingCommas, `{"a": "x,]"}`, `{"a": "x,]"}`},
		{"double commas", CollapseDoubleCommas, `[1,,2, ,3]`, `[1,2 ,3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.step(tc.in); got != tc.want {
				t.Fatalf("got  %q\nwant %q", got, tc.want)
			}
		})
	}
}

func TestRepairIsIdempotentOnBalancedInput(t *testing.T) {
	inputs := []string{
		`{"questions": []}`,
		"Réponse :\n{\n  \"questions\": [\n    {\"type\": \"qcm\", \"question\": \"X?\",\n     \"choices\": [\"A) a\",\"B) b\",,\"C) c\",\"D) d\",],\n     \"answer\": \"B\"},\n  ]\n}\nFin.",
		"{\"a\": \"multi\nline\", \"b\": [\n1,\n2\n]}",
		"{\"a\": \"x\"\n\"y\", \"b\": [\"p\"\n\"q\"]}",
		`{"nested": {"deep": [[[{}]]]}, "s": "{[,]}"}`,
	}
	for _, in := range inputs {
		once := Repair(in)
		if twice := Repair(once); twice != once {
			t.Fatalf("not idempotent for %q:\n once  %q\n twice %q", in, once, twice)
		}
	}
}

func TestRepairProducesValidJSON(t *testing.T) {
	inputs := []string{
		`{"questions": [{"type":"qcm","question":"X?","choices":["A) a","B) b","C) c","D) d"],"answer":"B","explanation":"e"`,
		"```json\n{\"questions\": [\n{\"question\": \"Q?\",\n\"choices\": [\"a\", \"b\",, \"c\", \"d\",],\n\"answer\": \"A\",}\n]}\n```",
		`{"questions": [{"question": "Pourquoi`,
	}
	for _, in := range inputs {
		out := Repair(in)
		if !json.Valid([]byte(out)) {
			t.Fatalf("invalid after repair:\n in  %q\n out %q", in, out)
		}
	}
}
