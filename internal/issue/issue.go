// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	SpecNotFoundId Id = iota + 1
	SpecParseErrorId
	UnsupportedAPIVersionId
	InvalidMountSpecId
	CircularIncludeId
	WalkDepthExceededId
	LockMissingId
	LockAlreadyExistsId
	LockDriftId
	UnknownLayerId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	MarkdownMsg string

	HttpLink string

	// Issue is a markdown explanation of a failure with optional links.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
		links []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) Links() []HttpLink {
	return slices.Clone(i.links)
}

// Markdown returns the message with a "See also" section when links exist.
func (i *Issue) Markdown() string {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.links) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range i.links {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return sb.String()
}

// Render renders the markdown with the given glamour style ("dark", "light",
// "notty", "auto" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	specNotFoundIssue = &Issue{
		id: SpecNotFoundId,
		mdMsg: `
# No spenv spec found!

No ` + "`.spenv.yaml`" + ` exists in the starting directory and no includes were given.

## Things you can try:
- Create a spec in the current directory:
~~~
$ spenv init
~~~

- Point at a different directory or file:
~~~
$ spenv show -f path/to/project
~~~

- Compose from explicit files instead:
~~~
$ spenv show -i ~/specs/base.yaml
~~~`,
	}

	specParseErrorIssue = &Issue{
		id: SpecParseErrorId,
		mdMsg: `
# Failed to parse a spec!

A spec file contains invalid YAML or does not match the expected structure.

## Things you can try:
- Check indentation and quoting around the reported line
- Make sure every ` + "`environment`" + ` entry has exactly one operation key
  (` + "`set`, `prepend`, `append`, `comment` or `priority`" + `)
- Make sure ` + "`priority`" + ` is between 0 and 99`,
		links: []HttpLink{"https://yaml.org/spec/1.2.2/"},
	}

	unsupportedAPIVersionIssue = &Issue{
		id: UnsupportedAPIVersionId,
		mdMsg: `
# Unsupported spec API version!

Every spec must start with the API tag this version of spenv understands:

~~~yaml
api: spenv/v0
~~~

## Things you can try:
- Add or fix the ` + "`api`" + ` field
- Upgrade spenv if the spec was written for a newer version`,
	}

	invalidMountSpecIssue = &Issue{
		id: InvalidMountSpecId,
		mdMsg: `
# Invalid bind mount!

A ` + "`contents`" + ` entry is not a valid bind mount.

## Requirements:
- ` + "`bind`" + ` (or ` + "`source`" + `) names an existing host path, relative to the spec
- ` + "`dest`" + ` is an absolute path under ` + "`/spfs`" + `

~~~yaml
contents:
  - bind: ./tools
    dest: /spfs/tools
    readonly: true
~~~`,
	}

	circularIncludeIssue = &Issue{
		id: CircularIncludeId,
		mdMsg: `
# Circular include!

A spec includes itself, directly or through other specs.

## Things you can try:
- Follow the include chain in the error message and remove one edge
- Move shared settings into a separate spec that both include`,
	}

	walkDepthExceededIssue = &Issue{
		id: WalkDepthExceededId,
		mdMsg: `
# Inheritance walk too deep!

The parent-directory walk exceeded the configured limit.

## Things you can try:
- Add ` + "`inherit: false`" + ` to a spec closer to the project root
- Raise ` + "`discovery.max_depth`" + ` in the spenv config`,
	}

	lockMissingIssue = &Issue{
		id: LockMissingId,
		mdMsg: `
# No lock file!

There is no ` + "`.spenv.lock.yaml`" + ` next to the spec.

## Things you can try:
~~~
$ spenv lock
~~~`,
	}

	lockAlreadyExistsIssue = &Issue{
		id: LockAlreadyExistsId,
		mdMsg: `
# Lock file already exists!

Creating a lock refuses to overwrite an existing one.

## Things you can try:
- Refresh it from the current inputs:
~~~
$ spenv lock --update
~~~`,
	}

	lockDriftIssue = &Issue{
		id: LockDriftId,
		mdMsg: `
# Environment drifted from its lock!

The spec files or layer digests changed since the lock was written.

## Things you can try:
- Review the changes listed above
- Accept them:
~~~
$ spenv lock --update
~~~`,
	}

	unknownLayerIssue = &Issue{
		id: UnknownLayerId,
		mdMsg: `
# Unknown layer!

A layer reference is neither a digest nor a configured tag.

## Things you can try:
- Use a full digest (` + "`sha256:<64 hex>`" + `)
- Map the tag in the spenv config:
~~~cue
layers: tags: "python/3.11": "sha256:..."
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the CUE syntax of the config file
- Compare it with the defaults:
~~~
$ spenv config dump
~~~`,
		links: []HttpLink{"https://cuelang.org/docs/"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

spenv could not read a spec or write the lock file.

## Things you can try:
- Check file and directory permissions
- Run spenv from a directory you own`,
	}

	issues = map[Id]*Issue{
		specNotFoundIssue.Id():          specNotFoundIssue,
		specParseErrorIssue.Id():        specParseErrorIssue,
		unsupportedAPIVersionIssue.Id(): unsupportedAPIVersionIssue,
		invalidMountSpecIssue.Id():      invalidMountSpecIssue,
		circularIncludeIssue.Id():       circularIncludeIssue,
		walkDepthExceededIssue.Id():     walkDepthExceededIssue,
		lockMissingIssue.Id():           lockMissingIssue,
		lockAlreadyExistsIssue.Id():     lockAlreadyExistsIssue,
		lockDriftIssue.Id():             lockDriftIssue,
		unknownLayerIssue.Id():          unknownLayerIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		permissionDeniedIssue.Id():      permissionDeniedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
