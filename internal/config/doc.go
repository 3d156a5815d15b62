// Package config holds the settings of one invocation and loads them from
// HCL files.
//
// A configuration file may contain any of these blocks:
//
//	instance {
//	  game_dir    = "${home}/.minecraft"
//	  command     = ["java", "-Xmx6G", "-jar", "launcher.jar"]
//	  working_dir = "."
//	  mods_dir    = "mods"
//	  crash_dir   = "crash-reports"
//	  logs_dir    = "logs"
//	  log_files   = ["latest.log", "debug.log"]
//	}
//
//	search {
//	  per_mod_timeout = "8s"
//	  min_timeout     = "10m"
//	  settle_delay    = "3s"
//	  poll_interval   = "1s"
//	  kill_grace      = "10s"
//	  log_tail_bytes  = 4194304
//	  reserved_ids    = ["minecraft", "forge"]
//	  disable_cascade = "enable-dependents"
//	}
//
//	process_match {
//	  name = "java"
//	  arg  = "minecraft"
//	}
//
//	overrides {
//	  versions    = { minecraft = "1.20.1" }
//	  lie_depends = ["somemod"]
//	}
//
// Expressions can read environment variables as env.NAME and the user's
// home directory as home. Relative instance paths are resolved against
// game_dir.
package config
