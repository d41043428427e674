// Package internal contains the implementation packages of pressify.
//
// # Package Organization
//
//   - provision: write-once directories and templated files of the environment
//   - platform: uid, gid and host address per platform, browser opener
//   - environment: docker compose lifecycle and environment state
//   - task: tasks, series and parallel composites and their scheduler
//   - pipeline: copy, bundle, styles, images and clean transforms
//   - archive: zip packaging of the theme and backups
//   - watcher: recursive fsnotify watcher with debouncing
//   - dispatch: maps file changes to rebuild tasks and browser reloads
//   - reload: reload proxy, websocket hub and injected client
//   - session: dev session phases, interrupt handling and supervision
//   - workflow: the named task graphs behind the CLI commands
//   - console: branded banners and the audible alert
//   - config, logging, errors, glob, version: shared infrastructure
//
// # Design Principles
//
// Only environment.Controller changes the environment state. Stream tasks
// report their failures and never abort a graph; every other failure is
// fatal and reaches the command's exit status.
package internal
