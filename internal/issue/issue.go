// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigNotFoundId Id = iota + 1
	ConfigLoadFailedId
	ConfigInvalidId
	EndpointNotFoundId
	ListenerOpenFailedId
	PortInUseId
	RunRoutineFailedId
	SlowShutdownId
	HostKeyFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown using the glamour style at
// stylePath ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundId,
		mdMsg: `
# Configuration file not found!

The file passed with '--config' does not exist.

## Things you can try:
- Check the path for typos
- Write a default configuration and edit it:
~~~
$ svchost config init
~~~

- Or run without '--config' to use the built-in defaults`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or is not valid CUE.

## Things you can try:
- Check the CUE syntax (quotes, braces, commas)
- Compare with the defaults:
~~~
$ svchost config show --defaults
~~~

- Remove unknown fields; the schema is closed`,
		extLinks: []HttpLink{"https://cuelang.org/docs/tour/"},
	}

	configInvalidIssue = &Issue{
		id: ConfigInvalidId,
		mdMsg: `
# Invalid configuration!

The configuration parsed but its values are inconsistent.

## Common causes:
- A listener names an endpoint that is not declared under 'endpoints'
- Two endpoints share the same name
- A duration such as 'lifecycle.grace_period' is negative or not a valid Go duration ("5s", "1m30s")
- 'log_level' is not one of debug, info, warn, error, fatal`,
	}

	endpointNotFoundIssue = &Issue{
		id: EndpointNotFoundId,
		mdMsg: `
# Endpoint not found!

A listener refers to an endpoint name that the endpoint catalog does not define.

## Things you can try:
- List the declared endpoints:
~~~
$ svchost endpoints
~~~

- Declare the endpoint in your configuration:
~~~cue
endpoints: [
  {name: "status", protocol: "http", port: 8080},
]
~~~`,
	}

	listenerOpenFailedIssue = &Issue{
		id: ListenerOpenFailedId,
		mdMsg: `
# A listener failed to open!

The instance rolled back every listener it had already opened and did not start its run routine.

## Things you can try:
- Re-run with '--verbose' to see which listener failed
- Check that the bind host exists on this machine
- Disable the failing listener in the configuration`,
	}

	portInUseIssue = &Issue{
		id: PortInUseId,
		mdMsg: `
# Port already in use!

Another process is bound to the port of one of your endpoints.

## Things you can try:
- Find the process holding the port:
~~~
$ ss -ltnp
~~~

- Pick another port, or use port 0 to let the system choose one:
~~~cue
endpoints: [
  {name: "status", protocol: "http", port: 0},
]
~~~`,
	}

	runRoutineFailedIssue = &Issue{
		id: RunRoutineFailedId,
		mdMsg: `
# The run routine failed!

The service's background work returned an error. The instance reported a
transient fault and an error health event, and keeps serving its listeners
until it is closed.

## Things you can try:
- Check the logs for the 'unhandled error in run routine' entry
- Query the status listener for recent health reports:
~~~
$ curl http://localhost:8080/health
~~~`,
	}

	slowShutdownIssue = &Issue{
		id: SlowShutdownId,
		mdMsg: `
# Shutdown is taking long!

The run routine has not exited after cancellation. A warning is logged every
'lifecycle.warning_interval' until it does.

## Things you can try:
- Make sure the run routine watches its context
- Press Ctrl+C again to abort the instance immediately`,
	}

	hostKeyFailedIssue = &Issue{
		id: HostKeyFailedId,
		mdMsg: `
# Failed to load the SSH host key!

The SSH status listener could not read or create its host key.

## Things you can try:
- Check that 'ssh.host_key_path' points to a writable location
- Leave 'ssh.host_key_path' empty to use an in-memory key`,
	}

	issues = map[Id]*Issue{
		configNotFoundIssue.Id():     configNotFoundIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		configInvalidIssue.Id():      configInvalidIssue,
		endpointNotFoundIssue.Id():   endpointNotFoundIssue,
		listenerOpenFailedIssue.Id(): listenerOpenFailedIssue,
		portInUseIssue.Id():          portInUseIssue,
		runRoutineFailedIssue.Id():   runRoutineFailedIssue,
		slowShutdownIssue.Id():       slowShutdownIssue,
		hostKeyFailedIssue.Id():      hostKeyFailedIssue,
	}
)

// Values returns every known issue ordered by Id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
