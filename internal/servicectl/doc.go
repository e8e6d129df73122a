// Package servicectl controls the audio server's systemd user units.
//
// The engine never manages the server process itself; it asks systemd.
// Everything goes through `systemctl --user`: property queries use
// `show --no-page --property=...` and parse the Key=value output, and
// lifecycle changes use the ordinary start/stop/restart verbs.
//
// Property parsing is deliberately forgiving: a property systemd does not
// report is simply absent from the result, and a unit systemd has never
// heard of reports a load state of "not-found" rather than an execution
// error. Callers decide what absence means for them.
package servicectl
