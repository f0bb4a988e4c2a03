// Package confloader loads the server configuration.
//
// Sources, later overriding earlier:
//
//  1. defaults already present in the target struct
//  2. a YAML file
//  3. BOARDMESH_ environment variables (BOARDMESH_STORAGE__HISTORY_DIR)
//  4. the legacy PORT, HOST, WBO_* and AUTO_FINGER_WHITEOUT variables
//
// Watcher reports changes to the config file so callers can reload the
// settings that apply at runtime.
package confloader
