// Package config provides configuration parsing for printdesk.
//
// The configuration is stored in printdesk.json (or printdesk.yaml) in the
// working directory. Every field is optional; missing values fall back to the
// defaults returned by New.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 80,
//	    "shutdownTimeout": "5s"
//	  },
//	  "storage": {
//	    "backend": "disk",
//	    "dir": "uploads",
//	    "maxUploadSize": 104857600
//	  },
//	  "vnc": {
//	    "connectionsFile": "config/vnc_connections.json",
//	    "defaultTarget": "localhost:5900",
//	    "allowCustomTarget": true
//	  },
//	  "frontend": {
//	    "dir": "frontend",
//	    "build": {
//	      "plugins": ["vue", "top-level-await"],
//	      "target": "esnext",
//	      "minify": false,
//	      "alias": {"@": "src"}
//	    }
//	  },
//	  "log": {"level": "info", "format": "text"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
