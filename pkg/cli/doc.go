/*
Package cli provides helpers shared by the taskgate commands.

Output Formatting:

Status commands print events as a table, JSON or CSV:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, events)

Signal Handling:

SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
ReloadSignal delivers SIGHUP so serve can reload its configuration.

Exit Codes:

ExitCode maps command errors to process exit codes; a *ConfigError exits
with ExitUsage.
*/
package cli
