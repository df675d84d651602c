// Package emit turns a canonical device model into a tree of register
// binding sources.
//
// # Overview
//
// A run works group by group:
//  1. Resolve the requested names to peripheral groups (unknown names are
//     reported in Report.Skipped and do not stop the run)
//  2. Plan an offset lookup table for every group and every cluster type,
//     rejecting overlapping layouts
//  3. Let the target dialect lay out its files as template jobs
//  4. Render every job through the template set, then format the source
//     where the dialect has a formatter
//  5. Hand the files to a Sink once all of them rendered
//
// Two dialects ship with embedded templates: "rust" (one module tree using
// bitfield-struct) and "go" (one package per group). Go templates carry a
// .tmpl suffix so the go tool does not treat them as sources; overrides in
// Config.Templates use the same names.
//
// # Usage
//
//	doc, err := svd.Load("nrf52.svd", svd.Options{})
//	dev, err := device.Build(doc)
//
//	cfg := emit.DefaultConfig()
//	cfg.Target = "go"
//	cfg.Templates = "./my-templates" // optional overrides
//
//	report, err := emit.Emit(dev, []string{"timer", "uart"}, emit.DirSink{Root: "out"}, cfg)
//	for _, err := range report.Skipped {
//		log.Println(err)
//	}
//
// Check renders the same files without writing them and diffs them against
// an existing output tree.
//
// # Output layout
//
// For the rust target:
//
//	mod.rs                    device root, RegInfo and permission bits
//	<group>/mod.rs            base addresses, interrupts, state struct
//	<group>/registers/mod.rs  register enumeration and bitfield structs
//	<group>/registers/<c>.rs  one file per cluster type
//
// For the go target:
//
//	peripherals.go            list of generated packages
//	<group>/<group>.go        base addresses, interrupts, State
//	<group>/registers.go      Reg, RegInfo, lookup and bitfield types
//	<group>/cluster_<c>.go    one file per cluster type
package emit
