package types

// Commands understood by the bridge and the native host
const (
	// CmdPingExtension is answered by the bridge itself
	CmdPingExtension = "ping-extension"
	// CmdPingHost asks the native host for its status and version
	CmdPingHost = "ping-host"
)

// MessageType tags every page <-> bridge message
const MessageType = "gpsio"

// Message sources on the page contract
const (
	SourcePage          = "page"
	SourceContentScript = "content_script"
)

// HostName is the registered native messaging host name
const HostName = "com.caltopo.gpsio"
