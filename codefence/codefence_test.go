package codefence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/devins/devinparser"
)

const helloJava = "public class HelloWorld {\n    public static void main(String[] args) {\n        System.out.println(\"Hello, World\");\n    }\n}"

func TestParseCodeFence(t *testing.T) {
	f := Parse("```java\n" + helloJava + "\n```")
	assert.Equal(t, "java", f.LanguageID)
	assert.Equal(t, helloJava, f.Text)
	assert.Equal(t, "java", f.Extension)
	assert.True(t, f.Complete)
}

func TestParseIncompleteFence(t *testing.T) {
	f := Parse("```java\npublic class HelloWorld {\n    int x;")
	assert.Equal(t, "public class HelloWorld {\n    int x;", f.Text)
	assert.False(t, f.Complete)
}

func TestParseLanguageWithSpaces(t *testing.T) {
	f := Parse("```http request\nGET /wp/v2/posts\n```")
	assert.Equal(t, "http request", f.LanguageID)
	assert.Equal(t, "http", f.Extension)
	assert.Equal(t, "GET /wp/v2/posts", f.Text)
}

func TestParseWithoutFence(t *testing.T) {
	f := Parse("just prose")
	assert.Equal(t, "", f.LanguageID)
	assert.Equal(t, "", f.Text)
	assert.False(t, f.Complete)
}

func TestParseDevinTag(t *testing.T) {
	content := "// call the tool\n<devin>\n/patch:src/index.html\n```patch\n// code\n```\n</devin>\n"
	f := Parse(content)
	assert.True(t, f.IsDevin())
	assert.Equal(t, "/patch:src/index.html\n```patch\n// code\n```", f.Text)
	assert.True(t, f.Complete)

	f = Parse("<devin>\n/file:a.go\n")
	assert.Equal(t, "/file:a.go", f.Text)
	assert.False(t, f.Complete)
}

func TestParseTaggedBlocks(t *testing.T) {
	tests := []struct {
		content  string
		lang     string
		text     string
		complete bool
	}{
		{"<thinking>reasoning</thinking>", LangThinking, "reasoning", true},
		{"<thinking>", LangThinking, "", false},
		{"<!-- walkthrough_start -->content<!-- walkthrough_end -->", LangWalkthrough, "content", true},
		{"<!--  walkthrough_start  -->\nContent here\n<!--  walkthrough_end  -->", LangWalkthrough, "Content here", true},
		{"<!-- walkthrough_start -->", LangWalkthrough, "", false},
	}
	for _, tt := range tests {
		f := Parse(tt.content)
		assert.Equal(t, tt.lang, f.LanguageID, "content %q", tt.content)
		assert.Equal(t, tt.text, f.Text, "content %q", tt.content)
		assert.Equal(t, tt.complete, f.Complete, "content %q", tt.content)
	}
}

func TestParseAllPlainText(t *testing.T) {
	fences := ParseAll("This is plain text")
	require.Len(t, fences, 1)
	assert.Equal(t, LangMarkdown, fences[0].LanguageID)
	assert.Equal(t, "This is plain text", fences[0].Text)
	assert.True(t, fences[0].Complete)
}

func TestParseAllMixed(t *testing.T) {
	content := "Here is some analysis:\n\n<thinking>\nstep by step\n</thinking>\n\nThe solution:\n\n```kotlin\nfun solution() {}\n```\n<devin>\n/file:a.kt\n</devin>\ntrailing"
	fences := ParseAll(content)

	var langs []string
	for _, f := range fences {
		langs = append(langs, f.LanguageID)
	}
	assert.Equal(t, []string{LangMarkdown, LangThinking, LangMarkdown, "kotlin", LangDevin, LangMarkdown}, langs)
	assert.Equal(t, "Here is some analysis:", fences[0].Text)
	assert.Equal(t, "step by step", fences[1].Text)
	assert.Equal(t, "fun solution() {}", fences[3].Text)
	assert.Equal(t, "kt", fences[3].Extension)
	assert.Equal(t, "/file:a.kt", fences[4].Text)
	assert.Equal(t, "trailing", fences[5].Text)
	for _, f := range fences {
		assert.True(t, f.Complete, "block %s", f.LanguageID)
	}
}

func TestParseAllKeepsEmptyTaggedBlocks(t *testing.T) {
	fences := ParseAll("<thinking>\n</thinking>\n```\n```")
	require.Len(t, fences, 1)
	assert.Equal(t, LangThinking, fences[0].LanguageID)
	assert.Empty(t, fences[0].Text)
}

func TestParseAllIncompleteCode(t *testing.T) {
	fences := ParseAll("intro\n```go\nfunc main() {")
	require.Len(t, fences, 2)
	assert.Equal(t, "go", fences[1].LanguageID)
	assert.False(t, fences[1].Complete)
}

func TestParseAllDevinFence(t *testing.T) {
	content := "```devin\n/write:HelloWorld.java\n```java\n" + helloJava + "\n```\n\n"
	fences := ParseAll(content)
	require.Len(t, fences, 1)
	assert.Equal(t, LangDevin, fences[0].LanguageID)
	assert.Equal(t, "/write:HelloWorld.java\n```java\n"+helloJava+"\n```", fences[0].Text)
	assert.True(t, fences[0].Complete)
}

func TestPreprocessDevinFences(t *testing.T) {
	out := PreprocessDevinFences("before\n```devin\n/file:a.go\n```\nafter")
	assert.Equal(t, "before\n\n<devin>\n/file:a.go\n</devin>\nafter", out)
	assert.Equal(t, "no fences", PreprocessDevinFences("no fences"))
}

func TestDocument(t *testing.T) {
	f := Parse("<devin>\n/file:main.go\n$lang = \"go\"\n</devin>")
	res := f.Document(nil)
	require.True(t, res.OK())
	assert.Empty(t, res.Errors)
	cmds := res.AST.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "file", cmds[0].Name)
	assert.Equal(t, "main.go", cmds[0].Args)

	res = f.Document(devinparser.NewParser(devinparser.WithMaxDepth(2)))
	assert.Len(t, res.AST.Variables(), 1)
}

func TestLookupFileExt(t *testing.T) {
	assert.Equal(t, "cs", LookupFileExt("C#"))
	assert.Equal(t, "sh", LookupFileExt("bash"))
	assert.Equal(t, "yaml", LookupFileExt("yml"))
	assert.Equal(t, "devin", LookupFileExt("devin"))
	assert.Equal(t, "zig", LookupFileExt("zig"))
}

func TestDisplayNameByExt(t *testing.T) {
	assert.Equal(t, "Kotlin", DisplayNameByExt("kt"))
	assert.Equal(t, "Shell Script", DisplayNameByExt("SH"))
	assert.Equal(t, "ZIG", DisplayNameByExt("zig"))
}
