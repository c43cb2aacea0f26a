// Package config provides configuration parsing for the reactive CLI and
// devtools server.
//
// The configuration is stored in reactive.json. Every field is optional.
//
// # Configuration File Structure
//
//	{
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "devtools": {
//	    "host": "localhost",
//	    "port": 7070,
//	    "allowedOrigins": ["http://localhost:5173"]
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "reactive"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  },
//	  "debug": {
//	    "logEffectRuns": false
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault("reactive.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Devtools:", cfg.DevtoolsAddress())
package config
