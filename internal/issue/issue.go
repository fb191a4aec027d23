// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	// ConfigNotFoundID is reported when no gather configuration can be located.
	ConfigNotFoundID ID = iota + 1
	// ConfigParseFailedID is reported for malformed gather configuration.
	ConfigParseFailedID
	// MissingDestinationID is reported when the configuration has no destination.
	MissingDestinationID
	// UnconfiguredLocalID is reported when @local imports have no [local] entry.
	UnconfiguredLocalID
	// ExtensionAmbiguousID is reported when several extensions could be configured.
	ExtensionAmbiguousID
	// NoTypstFilesID is reported when an extension declares no Typst templates.
	NoTypstFilesID
	// ConfigExistsID is reported when init-config would overwrite a file.
	ConfigExistsID
	// PackagesFailedID is reported when some packages could not be gathered.
	PackagesFailedID
)

type (
	// ID identifies a known issue.
	ID int

	// MarkdownMsg is the Markdown body of an issue guide.
	MarkdownMsg string

	// HTTPLink is a reference shown below an issue guide.
	HTTPLink string

	// Issue is a known failure with a Markdown guide.
	Issue struct {
		id       ID
		mdMsg    MarkdownMsg
		docLinks []HTTPLink
	}
)

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundID,
		mdMsg: `
# No gather configuration found

typst-gather needs to know where to put packages and which ones to gather.

## Lookup order
1. The path given on the command line
2. ` + "`typst-gather.toml`" + ` in the current directory
3. An extension in the current directory (` + "`_extension.yml`" + `) or below ` + "`_extensions/`" + `

## Things you can try
- Generate a starter configuration:
~~~
$ typst-gather init-config
~~~
- Or pass the configuration explicitly:
~~~
$ typst-gather path/to/typst-gather.toml
~~~`,
		docLinks: []HTTPLink{"https://typst.app/docs/reference/scripting/#packages"},
	}

	configParseFailedIssue = &Issue{
		id: ConfigParseFailedID,
		mdMsg: `
# The gather configuration is not valid TOML

## Expected shape
~~~toml
rootdir = "."                     # optional
destination = "typst/packages"    # required
discover = ["template.typ"]       # optional, string or list

[preview]
cetz = "0.4.1"

[local]
my-pkg = "../my-pkg"
~~~`,
	}

	missingDestinationIssue = &Issue{
		id: MissingDestinationID,
		mdMsg: `
# No destination configured

Add a ` + "`destination`" + ` key naming the package cache directory. Relative
paths are resolved against ` + "`rootdir`" + `, or the current directory when it is unset.
~~~toml
destination = "typst/packages"
~~~`,
	}

	unconfiguredLocalIssue = &Issue{
		id: UnconfiguredLocalID,
		mdMsg: `
# Local packages are imported but not configured

Some files import ` + "`@local`" + ` packages that typst-gather cannot find on its own.
Local packages are never downloaded; each one needs a source directory.

## Fix
Add every reported package to the ` + "`[local]`" + ` table:
~~~toml
[local]
my-pkg = "/path/to/my-pkg"
~~~`,
	}

	extensionAmbiguousIssue = &Issue{
		id: ExtensionAmbiguousID,
		mdMsg: `
# More than one extension found

Several ` + "`_extension.yml`" + ` files were found below ` + "`_extensions/`" + `.
Run typst-gather from the extension directory you want to configure, or pass
a configuration file explicitly.`,
	}

	noTypstFilesIssue = &Issue{
		id: NoTypstFilesID,
		mdMsg: `
# The extension declares no Typst files

typst-gather reads ` + "`contributes.formats.typst.template`" + ` and
` + "`template-partials`" + ` from ` + "`_extension.yml`" + `. Declare your templates there,
or write a ` + "`typst-gather.toml`" + ` by hand.`,
	}

	configExistsIssue = &Issue{
		id: ConfigExistsID,
		mdMsg: `
# typst-gather.toml already exists

init-config never overwrites an existing configuration. Remove or rename the
file first if you want a fresh one.`,
	}

	packagesFailedIssue = &Issue{
		id: PackagesFailedID,
		mdMsg: `
# Some packages could not be gathered

Failed packages are logged above. Common causes:
- A version that does not exist in the registry
- A ` + "`[local]`" + ` directory whose ` + "`typst.toml`" + ` declares a different name
- Network problems; retry once the registry is reachable

Packages that were gathered stay in the cache, so re-running only fetches what is missing.`,
	}

	issues = map[ID]*Issue{
		configNotFoundIssue.ID():     configNotFoundIssue,
		configParseFailedIssue.ID():  configParseFailedIssue,
		missingDestinationIssue.ID(): missingDestinationIssue,
		unconfiguredLocalIssue.ID():  unconfiguredLocalIssue,
		extensionAmbiguousIssue.ID(): extensionAmbiguousIssue,
		noTypstFilesIssue.ID():       noTypstFilesIssue,
		configExistsIssue.ID():       configExistsIssue,
		packagesFailedIssue.ID():     packagesFailedIssue,
	}
)

// ID returns the issue identifier.
func (i *Issue) ID() ID {
	return i.id
}

// MarkdownMsg returns the Markdown guide.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns links to further documentation.
func (i *Issue) DocLinks() []HTTPLink {
	return slices.Clone(i.docLinks)
}

// Render renders the guide for a terminal using the given glamour style
// ("dark", "light", "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

// Values returns all known issues ordered by ID.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
}

// Get returns the issue with the given ID, or nil.
func Get(id ID) *Issue {
	return issues[id]
}
