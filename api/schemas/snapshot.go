// api/schemas/snapshot.go
package schemas

// PageSnapshot is a comparable fingerprint of the current page state. It is
// ephemeral: captured immediately before a probe and compared against a
// second capture taken after the interaction settled.
type PageSnapshot struct {
	HTMLLength          int      `json:"htmlLength"`
	VisibleElementCount int      `json:"visibleElementCount"`
	TextContent         string   `json:"textContent"`
	DynamicContent      []string `json:"dynamicContent"`
	LiveRegions         []string `json:"liveRegions"`
	ExpandedStates      []string `json:"expandedStates"`
}

// SidebarState caches the result of the one-time sidebar/overlay layout
// query so the traversal doesn't repeat it on every page.
type SidebarState struct {
	Present bool   `json:"present"`
	Open    bool   `json:"open"`
	Kind    string `json:"kind"`
}
