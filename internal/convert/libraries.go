package convert

import (
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// reverseMarkdown builds the html-to-markdown v1 converter. The converter is
// created once and reused for every page in the run.
func reverseMarkdown() libraryFunc {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return conv.ConvertString
}

// html2Markdown converts with html-to-markdown v2 and its default plugins.
func html2Markdown(html string) (string, error) {
	return htmltomarkdown.ConvertString(html)
}
