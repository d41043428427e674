// Package cmd provides the command-line interface for pressify.
//
// # Available Commands
//
//   - env:start: provision the container environment and start it
//   - env:build: provision the environment and build its images
//   - env:rebuild: tear down, clean, provision and recreate the environment
//   - env:restart: restart one service (default wordpress)
//   - env:stop: stop the environment
//   - dev: start the environment, build the theme and serve it with live reload
//   - prod: build the theme and plugins into dist/ and package the theme
//   - backup: zip build/ into backups/
//   - tasks: list the named task graphs
//   - config: show, validate or initialize the configuration
//   - version: show build information
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags
//  2. PRESSIFY_<SECTION>_<OPTION> environment variables, plus SERVER_PORT
//     and PROXY_PORT
//  3. The project's .env file (never overrides the process environment)
//  4. The configuration file (.pressify.yml, --config or PRESSIFY_CONFIG_FILE)
//  5. Built-in defaults
package cmd
