// Package shell owns the dashboard's widget instances and their layout
// geometry. Widgets never talk to the shell directly; they report partial
// config diffs through the host contract and the shell merges them
// shallowly into its own record of each instance.
package shell
