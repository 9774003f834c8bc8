// Package scenario replays scripted event traffic against a fresh bus.
//
// A scenario file declares a hierarchy, recording listeners, optional Lua
// scripts and a list of steps:
//
//	tree:
//	  name: body
//	  children:
//	    - name: main
//	      children: [{name: grid}]
//	listeners:
//	  - {id: L1, scope: body, event: asset-selected}
//	scripts: [hooks.lua]
//	steps:
//	  - emit: {target: body/main/grid, event: asset-selected, payload: {assetId: a1, assetName: Photo.png}}
//	  - detach: body/main
//	  - attach: {node: body/main, parent: body}
//	  - subscribe: {id: L2, scope: body/main, event: asset-selected}
//	  - off: L1
//	expect:
//	  - {listener: L1, event: asset-selected, count: 1}
//
// Steps address nodes by the path they were declared at, so a detached node
// can still be used as an emission target. Every run builds its own bus,
// hierarchy and script host; a Runner can be run repeatedly.
package scenario
