package prosody

// Comment is a single-line Lua comment, printed as "-- text".
type Comment string

// Definition is a single "key = value" assignment, optionally preceded
// by its own comment line.
type Definition struct {
	Comment Comment
	Key     string
	Value   LuaValue
}

// Def builds a Definition with no comment.
func Def(key string, v LuaValue) Definition {
	return Definition{Key: key, Value: v}
}

// WithComment attaches a comment to an existing Definition.
func (d Definition) WithComment(c Comment) Definition {
	d.Comment = c
	return d
}

// Group is a named cluster of definitions (e.g. "Network interfaces and
// ports", "Modules"), optionally headed by a comment. Printing a group
// always appends one trailing blank line; an empty group (no
// definitions) is dropped entirely by the compiler before printing ever
// sees it.
type Group struct {
	Comment     Comment
	Definitions []Definition
}

// NewGroup builds a Group. Pass "" for comment to omit the header line.
func NewGroup(comment Comment, defs ...Definition) Group {
	return Group{Comment: comment, Definitions: defs}
}

// Section is either a VirtualHost or a Component block.
type Section struct {
	isComponent bool
	comments    []Comment
	hostname    string
	plugin      string // Component only
	name        string // Component only
	settings    []Group
}

// NewVirtualHost builds a `VirtualHost "hostname"` section.
func NewVirtualHost(hostname string, settings ...Group) Section {
	return Section{hostname: hostname, settings: settings}
}

// NewComponent builds a `Component "hostname" "plugin"` section with a
// mandatory `name = "..."` definition injected first, matching Prosody's
// convention for named components (e.g. the MUC and upload components).
func NewComponent(hostname, plugin, name string, settings ...Group) Section {
	return Section{isComponent: true, hostname: hostname, plugin: plugin, name: name, settings: settings}
}

func (s Section) WithComments(cs ...Comment) Section {
	s.comments = cs
	return s
}

// File is the top-level AST: an optional header comment block, the base
// server configuration as a sequence of groups, and the host/component
// sections that follow it.
type File struct {
	Header           []Comment
	GlobalSettings   []Group
	AdditionalSections []Section
}
