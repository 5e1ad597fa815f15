// Package factory provides a small generic registry used to instantiate
// pluggable modules (metrics sinks, audit stores) from configuration. A module
// is described by a type string and a map of raw settings; factories decode
// the settings into typed structs with Decode and return the implementation.
//
//	reg := factory.NewRegistry[audit.Store]()
//	_ = reg.Register("jsonl", func(conf map[string]any) (audit.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return audit.NewJSONLStore(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "sessions.log"}})
package factory
