// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"sort"
	"strings"
)

// RIBCL sections a command element is nested in
const (
	SectionRIB    = "RIB_INFO"
	SectionServer = "SERVER_INFO"
	SectionUser   = "USER_INFO"
)

// Resource keys for cached server state
const (
	ResourceFirmware   = "firmware"
	ResourcePower      = "power"
	ResourceUID        = "uid"
	ResourceServerName = "server_name"
	ResourceHealth     = "health"
	ResourceNetwork    = "network"
	ResourceGlobal     = "global"
	ResourceUsers      = "users"
)

// volatileResources change independently of the client and are never cached
var volatileResources = map[string]bool{
	ResourcePower: true,
	ResourceUID:   true,
}

// Encoding is the wire form of a command in one dialect
type Encoding struct {
	// Tag is the command element name
	Tag string

	// Attrs maps logical parameter names to wire attribute names where
	// they differ from the upper-cased logical name
	Attrs map[string]string

	// Value is the attribute projected by Result.Value
	Value string
}

// attr returns the wire attribute name for a logical parameter
func (e Encoding) attr(param string) string {
	if a, ok := e.Attrs[param]; ok {
		return a
	}
	return strings.ToUpper(param)
}

// ParamSpec documents one command parameter
type ParamSpec struct {
	// Name is the logical, lower-case parameter name
	Name string

	// Kind is the value domain
	Kind ValueKind

	// Required parameters must be supplied
	Required bool

	// States lists the allowed words for KindState
	States []string
}

// Command describes a logical RIBCL command
type Command struct {
	// Name is the logical command name
	Name string

	// Section is the enclosing element (RIB_INFO, SERVER_INFO, USER_INFO)
	Section string

	// Write selects MODE="write" on the section element
	Write bool

	// Legacy and Current are the per-dialect encodings
	Legacy  Encoding
	Current Encoding

	// Params are rendered in this order
	Params []ParamSpec

	// Privileged is advisory; the server enforces privileges
	Privileged bool

	// Resource is the cache key of a read command
	Resource string

	// KeyParam qualifies Resource and Invalidates as "resource:<value>"
	KeyParam string

	// Invalidates lists resources dropped after a successful mutation
	Invalidates []string

	// FoldValue lower-cases the projected value
	FoldValue bool
}

// Encoding returns the command's encoding for a resolved dialect
func (c *Command) Encoding(d Dialect) Encoding {
	if d == DialectCurrent {
		return c.Current
	}
	return c.Legacy
}

// Volatile reports whether the command reads a volatile resource
func (c *Command) Volatile() bool {
	return volatileResources[c.Resource]
}

// valueAttrs returns the projection attributes to try for a dialect: the
// dialect's own attribute first, then the other dialect's
//
// Firmware does not always answer in the dialect it accepted the request
// in, e.g. a legacy GET_HOST_POWER_STATUS may come back with POWER.
func (c *Command) valueAttrs(d Dialect) []string {
	var attrs []string
	for _, enc := range []Encoding{c.Encoding(d), c.Encoding(d.other())} {
		if enc.Value == "" {
			continue
		}
		if len(attrs) == 1 && attrs[0] == enc.Value {
			continue
		}
		attrs = append(attrs, enc.Value)
	}
	return attrs
}

var powerStates = []string{StateOn, StateOff, StateReset}
var uidStates = []string{StateOn, StateOff}

var userParams = []ParamSpec{
	{Name: "user_name", Kind: KindString},
	{Name: "user_login", Kind: KindString, Required: true},
	{Name: "password", Kind: KindString},
	{Name: "admin_priv", Kind: KindBool},
	{Name: "remote_cons_priv", Kind: KindBool},
	{Name: "reset_server_priv", Kind: KindBool},
	{Name: "virtual_media_priv", Kind: KindBool},
	{Name: "config_ilo_priv", Kind: KindBool},
}

var commands = map[string]*Command{
	"get_fw_version": {
		Section:  SectionRIB,
		Legacy:   Encoding{Tag: "GET_FW_VERSION", Value: "FIRMWARE_VERSION"},
		Current:  Encoding{Tag: "GET_FIRMWARE_VERSION", Value: "FIRMWARE_VERSION"},
		Resource: ResourceFirmware,
	},
	"get_host_power_status": {
		Section:   SectionServer,
		Legacy:    Encoding{Tag: "GET_HOST_POWER_STATUS", Value: "HOST_POWER"},
		Current:   Encoding{Tag: "GET_HOST_POWER_STATUS", Value: "POWER"},
		Resource:  ResourcePower,
		FoldValue: true,
	},
	"set_host_power": {
		Section:     SectionServer,
		Write:       true,
		Legacy:      Encoding{Tag: "SET_HOST_POWER", Attrs: map[string]string{"state": "HOST_POWER"}},
		Current:     Encoding{Tag: "SET_HOST_POWER", Attrs: map[string]string{"state": "POWER"}},
		Params:      []ParamSpec{{Name: "state", Kind: KindState, Required: true, States: powerStates}},
		Privileged:  true,
		Invalidates: []string{ResourcePower},
	},
	"reset_server": {
		Section:     SectionServer,
		Write:       true,
		Legacy:      Encoding{Tag: "RESET_SERVER"},
		Current:     Encoding{Tag: "RESET_SERVER"},
		Privileged:  true,
		Invalidates: []string{ResourcePower},
	},
	"get_uid_status": {
		Section:   SectionServer,
		Legacy:    Encoding{Tag: "GET_UID_STATUS", Value: "UID"},
		Current:   Encoding{Tag: "GET_UID_STATUS", Value: "UID_STATUS"},
		Resource:  ResourceUID,
		FoldValue: true,
	},
	"uid_control": {
		Section:     SectionServer,
		Write:       true,
		Legacy:      Encoding{Tag: "UID_CONTROL", Attrs: map[string]string{"state": "UID"}},
		Current:     Encoding{Tag: "SET_UID_STATUS", Attrs: map[string]string{"state": "UID_STATUS"}},
		Params:      []ParamSpec{{Name: "state", Kind: KindState, Required: true, States: uidStates}},
		Invalidates: []string{ResourceUID},
	},
	"get_server_name": {
		Section:  SectionServer,
		Legacy:   Encoding{Tag: "GET_SERVER_NAME", Value: "VALUE"},
		Current:  Encoding{Tag: "GET_SERVER_NAME", Value: "SERVER_NAME"},
		Resource: ResourceServerName,
	},
	"set_server_name": {
		Section:     SectionServer,
		Write:       true,
		Legacy:      Encoding{Tag: "SERVER_NAME", Attrs: map[string]string{"name": "VALUE"}},
		Current:     Encoding{Tag: "SET_SERVER_NAME", Attrs: map[string]string{"name": "SERVER_NAME"}},
		Params:      []ParamSpec{{Name: "name", Kind: KindString, Required: true}},
		Privileged:  true,
		Invalidates: []string{ResourceServerName},
	},
	"get_embedded_health": {
		Section:  SectionServer,
		Legacy:   Encoding{Tag: "GET_EMBEDDED_HEALTH"},
		Current:  Encoding{Tag: "GET_EMBEDDED_HEALTH"},
		Resource: ResourceHealth,
	},
	"get_network_settings": {
		Section:  SectionRIB,
		Legacy:   Encoding{Tag: "GET_NETWORK_SETTINGS", Value: "IP_ADDRESS"},
		Current:  Encoding{Tag: "GET_NETWORK_SETTINGS", Value: "IP_ADDRESS"},
		Resource: ResourceNetwork,
	},
	"mod_network_settings": {
		Section: SectionRIB,
		Write:   true,
		Legacy:  Encoding{Tag: "MOD_NETWORK_SETTINGS"},
		Current: Encoding{Tag: "MOD_NETWORK_SETTINGS", Attrs: map[string]string{
			"dhcp_enable":      "DHCP_ENABLED",
			"speed_autoselect": "AUTO_NEGOTIATE",
		}},
		Params: []ParamSpec{
			{Name: "enable_nic", Kind: KindBool},
			{Name: "speed_autoselect", Kind: KindBool},
			{Name: "dhcp_enable", Kind: KindBool},
			{Name: "ip_address", Kind: KindString},
			{Name: "subnet_mask", Kind: KindString},
			{Name: "gateway_ip_address", Kind: KindString},
			{Name: "dns_name", Kind: KindString},
			{Name: "domain_name", Kind: KindString},
			{Name: "prim_dns_server", Kind: KindString},
			{Name: "sec_dns_server", Kind: KindString},
			{Name: "reg_ddns_server", Kind: KindBool},
		},
		Privileged:  true,
		Invalidates: []string{ResourceNetwork},
	},
	"get_global_settings": {
		Section:  SectionRIB,
		Legacy:   Encoding{Tag: "GET_GLOBAL_SETTINGS", Value: "SESSION_TIMEOUT"},
		Current:  Encoding{Tag: "GET_GLOBAL_SETTINGS", Value: "SESSION_TIMEOUT"},
		Resource: ResourceGlobal,
	},
	"mod_global_settings": {
		Section: SectionRIB,
		Write:   true,
		Legacy:  Encoding{Tag: "MOD_GLOBAL_SETTINGS"},
		Current: Encoding{Tag: "MOD_GLOBAL_SETTINGS", Attrs: map[string]string{
			"f8_prompt_enable": "RBSU_POST_IP",
		}},
		Params: []ParamSpec{
			{Name: "session_timeout", Kind: KindUint},
			{Name: "f8_prompt_enable", Kind: KindBool},
			{Name: "http_port", Kind: KindPort},
			{Name: "https_port", Kind: KindPort},
			{Name: "remote_console_port", Kind: KindPort},
			{Name: "virtual_media_port", Kind: KindPort},
			{Name: "min_password", Kind: KindUint},
		},
		Privileged:  true,
		Invalidates: []string{ResourceGlobal},
	},
	"get_all_users": {
		Section:  SectionUser,
		Legacy:   Encoding{Tag: "GET_ALL_USERS"},
		Current:  Encoding{Tag: "GET_ALL_USERS"},
		Resource: ResourceUsers,
	},
	"get_user": {
		Section:  SectionUser,
		Legacy:   Encoding{Tag: "GET_USER", Value: "USER_NAME"},
		Current:  Encoding{Tag: "GET_USER", Value: "USER_NAME"},
		Params:   []ParamSpec{{Name: "user_login", Kind: KindString, Required: true}},
		Resource: ResourceUsers,
		KeyParam: "user_login",
	},
	"add_user": {
		Section:     SectionUser,
		Write:       true,
		Legacy:      Encoding{Tag: "ADD_USER"},
		Current:     Encoding{Tag: "ADD_USER"},
		Params:      requireParams(userParams, "user_name", "password"),
		Privileged:  true,
		KeyParam:    "user_login",
		Invalidates: []string{ResourceUsers},
	},
	"mod_user": {
		Section: SectionUser,
		Write:   true,
		Legacy:  Encoding{Tag: "MOD_USER"},
		Current: Encoding{Tag: "MOD_USER", Attrs: map[string]string{
			"user_name": "NEW_USER_NAME",
		}},
		Params:      userParams,
		Privileged:  true,
		KeyParam:    "user_login",
		Invalidates: []string{ResourceUsers},
	},
	"delete_user": {
		Section:     SectionUser,
		Write:       true,
		Legacy:      Encoding{Tag: "DELETE_USER"},
		Current:     Encoding{Tag: "DELETE_USER"},
		Params:      []ParamSpec{{Name: "user_login", Kind: KindString, Required: true}},
		Privileged:  true,
		KeyParam:    "user_login",
		Invalidates: []string{ResourceUsers},
	},
}

// aliases maps short accessor-style names to table entries
var aliases = map[string]string{
	"fw_version":       "get_fw_version",
	"power_status":     "get_host_power_status",
	"power":            "set_host_power",
	"uid_status":       "get_uid_status",
	"uid":              "uid_control",
	"server_name":      "get_server_name",
	"health":           "get_embedded_health",
	"network":          "get_network_settings",
	"network_settings": "get_network_settings",
	"global_settings":  "get_global_settings",
	"users":            "get_all_users",
	"user":             "get_user",
}

func init() {
	for name, cmd := range commands {
		cmd.Name = name
	}
}

func requireParams(specs []ParamSpec, names ...string) []ParamSpec {
	out := make([]ParamSpec, len(specs))
	copy(out, specs)
	for i := range out {
		for _, n := range names {
			if out[i].Name == n {
				out[i].Required = true
			}
		}
	}
	return out
}

// LookupCommand returns the command registered under name or one of its aliases
func LookupCommand(name string) (*Command, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	cmd, ok := commands[name]
	return cmd, ok
}

// CommandNames returns the sorted logical command names
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Param is a caller-supplied (key, value) pair
//
// Value may be a string, a bool, or an integer.
type Param struct {
	Key   string
	Value any
}

// wireParam is a validated parameter ready for rendering
type wireParam struct {
	spec  ParamSpec
	value string
}

// normalize validates params against the command's specs and returns them
// in table order
//
// Fails with InvalidParameter for an unknown, duplicate or missing
// parameter, or a value outside its domain.
func (c *Command) normalize(params []Param) ([]wireParam, *IloError) {
	given := make(map[string]any, len(params))
	for _, p := range params {
		key := strings.ToLower(strings.TrimSpace(p.Key))
		if _, dup := given[key]; dup {
			return nil, invalidParam(c.Name, "duplicate parameter %q", p.Key)
		}
		known := false
		for _, spec := range c.Params {
			if spec.Name == key {
				known = true
				break
			}
		}
		if !known {
			return nil, invalidParam(c.Name, "unknown parameter %q", p.Key)
		}
		if p.Value == nil {
			return nil, invalidParam(c.Name, "parameter %q has no value", p.Key)
		}
		given[key] = p.Value
	}

	out := make([]wireParam, 0, len(given))
	for _, spec := range c.Params {
		value, ok := given[spec.Name]
		if !ok {
			if spec.Required {
				return nil, invalidParam(c.Name, "missing required parameter %q", spec.Name)
			}
			continue
		}
		wire, err := formatValue(spec, value)
		if err != nil {
			return nil, invalidParam(c.Name, "parameter %q: %s", spec.Name, err)
		}
		out = append(out, wireParam{spec: spec, value: wire})
	}
	return out, nil
}

// resourceKey returns the cache key a read command stores its result under
func (c *Command) resourceKey(values []wireParam) string {
	if c.Resource == "" {
		return ""
	}
	return qualify(c.Resource, c.KeyParam, values)
}

// invalidationKeys returns the cache keys a successful mutation drops
func (c *Command) invalidationKeys(values []wireParam) []string {
	var keys []string
	for _, res := range c.Invalidates {
		keys = append(keys, res)
		if q := qualify(res, c.KeyParam, values); q != res {
			keys = append(keys, q)
		}
	}
	return keys
}

func qualify(resource, keyParam string, values []wireParam) string {
	if keyParam == "" {
		return resource
	}
	for _, v := range values {
		if v.spec.Name == keyParam {
			return resource + ":" + v.value
		}
	}
	return resource
}
