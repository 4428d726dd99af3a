package classify

import "testing"

func TestClassifyTextLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want LineCategory
	}{
		{"empty", "", CategoryEmpty},
		{"separator", "────────────────", CategorySeparator},
		{"separator with artifact", "────────────��", CategorySeparator},
		{"diff delimiter", "╌╌╌╌╌╌╌╌", CategoryDiffDelimiter},
		{"startup banner", "Claude Code v1.2.3", CategoryStartup},
		{"status bar branch", "my-project │ ⎇ main ⇡2", CategoryStatusBar},
		{"status bar usage", "my-project │ Usage: 12% of context", CategoryStatusBar},
		{"tip line", "Tip: press / for commands", CategoryStatusBar},
		{"bare time", "10:42", CategoryStatusBar},
		{"pr indicator", "PR #123", CategoryStatusBar},
		{"thinking", "✶ Thinking…", CategoryThinking},
		{"thinking with elapsed", "✳ Pondering… (thought for 3s)", CategoryThinking},
		{"tool header bash", "Bash(ls -la)", CategoryToolHeader},
		{"tool header with marker", "⏺ Write(foo.go)", CategoryToolHeader},
		{"response", "⏺ Here is the answer", CategoryResponse},
		{"tool connector", "  ⎿ Running…", CategoryToolConnector},
		{"todo pending", "◻ write tests", CategoryTodoItem},
		{"todo done", "✔ write tests", CategoryTodoItem},
		{"agent tree", "├─ worker (scans files)", CategoryAgentTree},
		{"prompt bare", "❯", CategoryPrompt},
		{"prompt with text", "❯ hello there", CategoryPrompt},
		{"plain content", "just some prose text", CategoryContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTextLine(tt.line)
			if got != tt.want {
				t.Errorf("ClassifyTextLine(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestChromeCategoriesCoverage(t *testing.T) {
	for _, cat := range []LineCategory{
		CategorySeparator, CategoryDiffDelimiter, CategoryStatusBar,
		CategoryPrompt, CategoryThinking, CategoryStartup, CategoryLogo,
		CategoryBox, CategoryEmpty,
	} {
		if !ChromeCategories[cat] {
			t.Errorf("expected %v in ChromeCategories", cat)
		}
	}
	if ChromeCategories[CategoryContent] {
		t.Error("content must not be a chrome category")
	}
}
