// Package category holds the closed taxonomy used to group reading items.
package category

import (
	"sort"
	"strings"
)

// Key identifies a category
type Key string

const (
	AITech       Key = "ai-tech"
	DevTools     Key = "dev-tools"
	Product      Key = "product"
	Design       Key = "design"
	Business     Key = "business"
	Research     Key = "research"
	Career       Key = "career"
	Productivity Key = "productivity"
	Reading      Key = "reading"
	LaterWrite   Key = "laterwrite"
	General      Key = "general"
)

// Info describes how a category is rendered and hinted to the classifier
type Info struct {
	Key      Key
	Symbol   string
	Label    string
	Keywords string
}

// Registry maps keys to their rendering info in a fixed display order
type Registry struct {
	order    []Key
	byKey    map[Key]Info
	bySymbol map[string]Key
	symbols  []string
}

var builtin = []Info{
	{AITech, "🤖", "AI/Tech", "AI, machine learning, LLM, GPT, Claude, deep learning, neural network, automation, agents, prompts"},
	{DevTools, "🛠️", "Dev Tools", "programming, coding, developer tools, IDE, API, SDK, framework, library, open source"},
	{Product, "📦", "Product", "product launch, startup, SaaS, app, tool, software, service, platform"},
	{Design, "🎨", "Design", "UI, UX, design system, figma, interface, visual, typography, branding"},
	{Business, "💼", "Business", "startup, funding, investment, strategy, growth, marketing, sales, revenue"},
	{Research, "📚", "Research", "paper, study, academic, methodology, analysis, experiment, findings"},
	{Career, "🎯", "Career", "job, hiring, interview, resume, skills, career growth, salary, remote work"},
	{Productivity, "⚡", "Productivity", "workflow, efficiency, habits, time management, tools, automation, life hacks"},
	{Reading, "📖", "Reading", "book, article, blog post, newsletter, essay, long read, writing"},
	{LaterWrite, "✍️", "LaterWrite", "articles to write about, content ideas, writing inspiration, potential blog posts"},
	{General, "📌", "General", "everything else, misc, uncategorized"},
}

var fallback = Info{General, "📌", "General", "everything else, misc, uncategorized"}

// Default returns the built-in registry
func Default() *Registry {
	return New(builtin)
}

// New builds a registry whose display order is the order of infos.
// A general entry is appended when infos does not define one.
func New(infos []Info) *Registry {
	r := &Registry{
		byKey:    make(map[Key]Info, len(infos)+1),
		bySymbol: make(map[string]Key, len(infos)+1),
	}
	for _, info := range infos {
		if _, dup := r.byKey[info.Key]; dup {
			continue
		}
		r.order = append(r.order, info.Key)
		r.byKey[info.Key] = info
		if _, taken := r.bySymbol[info.Symbol]; !taken {
			r.bySymbol[info.Symbol] = info.Key
		}
	}
	if _, ok := r.byKey[General]; !ok {
		r.order = append(r.order, General)
		r.byKey[General] = fallback
		if _, taken := r.bySymbol[fallback.Symbol]; !taken {
			r.bySymbol[fallback.Symbol] = General
		}
	}
	for sym := range r.bySymbol {
		r.symbols = append(r.symbols, sym)
	}
	// longest first so that alternations never stop at a shorter prefix
	sort.Slice(r.symbols, func(i, j int) bool {
		if len(r.symbols[i]) != len(r.symbols[j]) {
			return len(r.symbols[i]) > len(r.symbols[j])
		}
		return r.symbols[i] < r.symbols[j]
	})
	return r
}

// Order returns the display order
func (r *Registry) Order() []Key {
	return append([]Key(nil), r.order...)
}

// Symbols returns every configured symbol, longest first
func (r *Registry) Symbols() []string {
	return append([]string(nil), r.symbols...)
}

// Lookup returns the info for key, or the general entry when key is unknown
func (r *Registry) Lookup(key Key) Info {
	if info, ok := r.byKey[key]; ok {
		return info
	}
	return r.byKey[General]
}

// Resolve maps a raw key string onto a known key, defaulting to General
func (r *Registry) Resolve(raw string) Key {
	k := Key(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := r.byKey[k]; ok {
		return k
	}
	return General
}

// Known reports whether raw names a registered key
func (r *Registry) Known(raw string) bool {
	_, ok := r.byKey[Key(raw)]
	return ok
}

// KeyForSymbol reverse-maps a symbol, defaulting to General
func (r *Registry) KeyForSymbol(symbol string) Key {
	if k, ok := r.bySymbol[symbol]; ok {
		return k
	}
	return General
}

// HasSymbol reports whether symbol is configured
func (r *Registry) HasSymbol(symbol string) bool {
	_, ok := r.bySymbol[symbol]
	return ok
}

// Prompt enumerates the categories for the classifier
func (r *Registry) Prompt() string {
	var sb strings.Builder
	sb.WriteString("Categories (choose the BEST match):\n")
	for _, k := range r.order {
		info := r.byKey[k]
		sb.WriteString("- ")
		sb.WriteString(string(k))
		sb.WriteString(": ")
		sb.WriteString(info.Label)
		sb.WriteString(" - ")
		sb.WriteString(info.Keywords)
		sb.WriteString("\n")
	}
	return sb.String()
}
