package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"riddlecut/pkg/assembly"
	"riddlecut/pkg/config"
	"riddlecut/pkg/model"

	"github.com/samber/lo"
)

// loadJob reads an assembly request from a JSON job file.
func loadJob(path string) (assembly.Request, error) {
	var req assembly.Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read job file: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse job file: %w", err)
	}
	if len(req.Segments) == 0 {
		return req, fmt.Errorf("job file %s has no segments", path)
	}
	for _, seg := range req.Segments {
		if !seg.Kind.Known() {
			slog.Warn("Unknown segment kind, question timing applies", "segment", seg.ID, "kind", seg.Kind)
		}
	}
	return req, nil
}

// completeLayers adds the configured countdown sting on thinking beats and
// the reveal sting on answers. A segment that already requests a sound effect
// is left alone. Voice layers are filled in by the assembler.
func completeLayers(req *assembly.Request, stings config.StingsConfig) {
	if req.Layers == nil {
		req.Layers = make(map[string][]model.RequestedLayer)
	}

	for i := range req.Segments {
		seg := &req.Segments[i]
		if lo.ContainsBy(req.Layers[seg.ID], func(l model.RequestedLayer) bool { return l.Kind == model.SourceSoundEffect }) {
			continue
		}
		switch {
		case seg.Kind == model.KindThinking && stings.Countdown != "":
			req.Layers[seg.ID] = append(req.Layers[seg.ID], model.RequestedLayer{
				Kind:   model.SourceSoundEffect,
				Asset:  stings.Countdown,
				Anchor: model.AnchorStart,
			})
		case seg.Kind == model.KindAnswer && stings.Reveal != "":
			anchor := model.Anchor(stings.RevealAnchor)
			if anchor == "" {
				anchor = model.AnchorStart
			}
			req.Layers[seg.ID] = append(req.Layers[seg.ID], model.RequestedLayer{
				Kind:   model.SourceSoundEffect,
				Asset:  stings.Reveal,
				Anchor: anchor,
			})
		}
	}
}
