package watcher

import (
	"fmt"
	"testing"
)

func BenchmarkRuleMatches(b *testing.B) {
	rule := Rule{
		Include: []string{"img/**/*"},
		Exclude: []string{"img/svg/**"},
	}
	paths := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		if i%4 == 0 {
			paths = append(paths, fmt.Sprintf("img/svg/icon-%d.svg", i))
			continue
		}
		paths = append(paths, fmt.Sprintf("img/photos/%d/pic-%d.jpg", i%7, i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, p := range paths {
			_ = rule.Matches(p)
		}
	}
}

func BenchmarkDispatch(b *testing.B) {
	fw, err := NewFileWatcher(b.TempDir(), 0, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer fw.Stop()
	fw.AddRule(Rule{Name: "none", Include: []string{"nothing/**"}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fw.dispatch(ChangeEvent{Path: "/root/css/main.scss", Rel: "css/main.scss"})
	}
}
