//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package registry

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	yaml "gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-registry/config"
	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/healthcheck"
	"trpc.group/trpc-go/trpc-registry/internal/expandenv"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/metrics"
	"trpc.group/trpc-go/trpc-registry/topology"
)

// LoadTopology publishes the topology file of cfg into idx. When cfg.Watch is
// set, every later change of the file is republished; a change that does not
// build keeps the previous topology. update, if not nil, receives the health of
// the topology component.
func LoadTopology(cfg TopologyConfig, idx *topology.Index, update func(healthcheck.Status)) error {
	if update == nil {
		update = func(healthcheck.Status) {}
	}
	if cfg.Path == "" {
		log.Info("no topology configured, every caller is ungrouped")
		update(healthcheck.Serving)
		return nil
	}

	opts := []config.LoadOption{config.WithCodec("yaml"), config.WithExpandEnv()}
	if cfg.Watch {
		opts = append(opts, config.WithWatch(), config.WithWatchHook(func(msg config.WatchMessage) {
			if msg.Error != nil {
				metrics.IncrCounter(metrics.TopologyReloadFail, 1)
				log.Errorf("topology %s changed but does not parse: %v", msg.Path, msg.Error)
				return
			}
			tc, err := decodeTopology(expandenv.ExpandEnv(msg.Value), cfg.Key)
			if err != nil {
				metrics.IncrCounter(metrics.TopologyReloadFail, 1)
				log.Errorf("topology %s changed but does not parse: %v", msg.Path, err)
				return
			}
			if err := publishTopology(msg.Path, idx, tc); err != nil {
				log.Errorf("topology %s rejected, keeping the previous one: %v", msg.Path, err)
				return
			}
			update(healthcheck.Serving)
		}))
	}
	doc, err := config.Load(cfg.Path, opts...)
	if err != nil {
		update(healthcheck.NotServing)
		return errs.Wrapf(err, errs.RetConfigInvalid, "load topology %s", cfg.Path)
	}
	tc, err := decodeTopology(doc.Bytes(), cfg.Key)
	if err != nil {
		update(healthcheck.NotServing)
		return errs.Wrapf(err, errs.RetConfigInvalid, "parse topology %s", cfg.Path)
	}
	if err := publishTopology(cfg.Path, idx, tc); err != nil {
		update(healthcheck.NotServing)
		return err
	}
	update(healthcheck.Serving)
	return nil
}

// decodeTopology decodes the topology of a yaml document. A non empty key
// selects a nested section, "infra.topology" for example.
func decodeTopology(data []byte, key string) (topology.Config, error) {
	var tc topology.Config
	if key == "" {
		err := yaml.Unmarshal(data, &tc)
		return tc, err
	}
	var root map[string]interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return tc, err
	}
	var section interface{} = root
	for _, k := range strings.Split(key, ".") {
		m, ok := section.(map[string]interface{})
		if !ok {
			return tc, fmt.Errorf("no section %q", key)
		}
		if section, ok = m[k]; !ok {
			return tc, fmt.Errorf("no section %q", key)
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           &tc,
	})
	if err != nil {
		return tc, err
	}
	err = dec.Decode(section)
	return tc, err
}

func publishTopology(path string, idx *topology.Index, tc topology.Config) error {
	if err := idx.Publish(tc); err != nil {
		metrics.IncrCounter(metrics.TopologyReloadFail, 1)
		return errs.Wrapf(err, errs.RetConfigInvalid, "build topology %s", path)
	}
	metrics.IncrCounter(metrics.TopologyReloadOK, 1)
	st := idx.Stats()
	log.Infof("topology %s published: %+v", path, st)
	return nil
}
