// Package agent holds the catalogue of agents the workspace can open.
//
// Each Descriptor names an agent, says whether it can be opened yet and which
// session Kind drives it. Unavailable agents are listed so the user can see
// them, but the workspace refuses to open them.
package agent
