// Package preflight provides readiness checks for the tools, directories and
// event sinks clipress depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before each job. A failing check
//     fails the job up front instead of part-way through an encode.
//   - The daemon status report and `clipress status` show the individual
//     results, including the optional event sink checks.
package preflight
