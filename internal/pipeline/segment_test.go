package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	got := Split(" &x:1 | | $out:!x |")
	want := []string{"&x:1", "$out:!x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		segment string
		want    SegmentKind
	}{
		{"link[href]:!url", AttrWrite},
		{"#link[ href ] :x", AttrWrite},
		{".row[1:3].text:hi", IndexedWrite},
		{".row[0].color:red", IndexedWrite},
		{"+target:s1", ShellOpen},
		{"+ target:s1", ShellOpen},
		{"-s1", ShellClose},
		{"#v:input.value", PropRead},
		{"&x:1", LiteralAssign},
		{"&v:!count?5", LiteralAssign},
		{"box.color:red", PropWrite},
		{"#box.hidden:true", PropWrite},
		{"nop:result", NopStore},
		{"$out", ContentSet},
		{"$out:Hello !name", ContentSet},
		{"log:hello", VerbCall},
		{"inc:n:3", VerbCall},
		{"toggle", VerbCall},
		{"ajax:http://example.com/a:out", VerbCall},
		{"&x", Malformed},
		{"@@@", Malformed},
		{"", Malformed},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			if got := Classify(tt.segment); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.segment, got, tt.want)
			}
		})
	}
}

func TestMatch_Groups(t *testing.T) {
	kind, m := Match(".row[-1].style:<b>x</b>")
	if kind != IndexedWrite {
		t.Fatalf("Expected indexed-write, got %s", kind)
	}
	want := []string{".row[-1].style:<b>x</b>", ".row", "-1", "style", "<b>x</b>"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Match groups mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitParams(t *testing.T) {
	if got := splitParams(""); got != nil {
		t.Errorf("Expected no params, got %v", got)
	}
	got := splitParams("n: 3 :x")
	if diff := cmp.Diff([]string{"n", "3", "x"}, got); diff != "" {
		t.Errorf("splitParams mismatch (-want +got):\n%s", diff)
	}
}

func TestVerbName(t *testing.T) {
	tests := []struct {
		segment string
		name    string
		ok      bool
	}{
		{"inc:n:3", "inc", true},
		{" toggle ", "toggle", true},
		{"&x:1", "", false},
		{"$out:hi", "", false},
	}
	for _, tt := range tests {
		name, ok := VerbName(tt.segment)
		if name != tt.name || ok != tt.ok {
			t.Errorf("VerbName(%q): expected (%q, %v), got (%q, %v)", tt.segment, tt.name, tt.ok, name, ok)
		}
	}
}
