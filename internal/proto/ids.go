package proto

// State is one of the four protocol states a Connection moves through.
type State int

const (
	StateHandshake State = iota
	StateStatus
	StateLogin
	StatePlay
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StatePlay:
		return "play"
	default:
		return "unknown"
	}
}

// Serverbound packet ids, protocol 578 (1.15.2).
const (
	HandshakeSBHandshake VarUInt = 0x00

	StatusSBRequest VarUInt = 0x00
	StatusSBPing    VarUInt = 0x01

	LoginSBLoginStart         VarUInt = 0x00
	LoginSBEncryptionResponse VarUInt = 0x01

	PlaySBTeleportConfirm  VarUInt = 0x00
	PlaySBChatMessage      VarUInt = 0x03
	PlaySBClientSettings   VarUInt = 0x05
	PlaySBKeepAlive        VarUInt = 0x0F
	PlaySBPlayerPosition   VarUInt = 0x11
	PlaySBPlayerPosAndLook VarUInt = 0x12
	PlaySBPlayerRotation   VarUInt = 0x13
	PlaySBPlayerMovement   VarUInt = 0x14
	PlaySBEntityAction     VarUInt = 0x1B
	PlaySBHeldItemChange   VarUInt = 0x23
	PlaySBAnimation        VarUInt = 0x2A
)

// Clientbound packet ids, protocol 578 (1.15.2).
const (
	StatusCBResponse VarUInt = 0x00
	StatusCBPong     VarUInt = 0x01

	LoginCBDisconnect        VarUInt = 0x00
	LoginCBEncryptionRequest VarUInt = 0x01
	LoginCBLoginSuccess      VarUInt = 0x02
	LoginCBSetCompression    VarUInt = 0x03

	PlayCBSpawnPlayer            VarUInt = 0x05
	PlayCBEntityAnimation        VarUInt = 0x06
	PlayCBBlockChange            VarUInt = 0x0C
	PlayCBChatMessage            VarUInt = 0x0F
	PlayCBMultiBlockChange       VarUInt = 0x10
	PlayCBDeclareCommands        VarUInt = 0x12
	PlayCBPluginMessage          VarUInt = 0x19
	PlayCBDisconnect             VarUInt = 0x1B
	PlayCBEntityStatus           VarUInt = 0x1C
	PlayCBUnloadChunk            VarUInt = 0x1E
	PlayCBKeepAlive              VarUInt = 0x21
	PlayCBChunkData              VarUInt = 0x22
	PlayCBUpdateLight            VarUInt = 0x25
	PlayCBJoinGame               VarUInt = 0x26
	PlayCBEntityPosition         VarUInt = 0x29
	PlayCBEntityPositionRotation VarUInt = 0x2A
	PlayCBEntityRotation         VarUInt = 0x2B
	PlayCBPlayerInfo             VarUInt = 0x34
	PlayCBPlayerPosAndLook       VarUInt = 0x36
	PlayCBUnlockRecipes          VarUInt = 0x37
	PlayCBWorldBorder            VarUInt = 0x3E
	PlayCBHeldItemChange         VarUInt = 0x40
	PlayCBUpdateViewPosition     VarUInt = 0x41
	PlayCBSpawnPosition          VarUInt = 0x4E
	PlayCBEntityTeleport         VarUInt = 0x57
	PlayCBDeclareRecipes         VarUInt = 0x5B
	PlayCBTags                   VarUInt = 0x5C
)

// allowedServerbound is the closed set of serverbound packet ids valid per state.
// A serverbound id for the current state that is not in this set is a fatal protocol
// error (§4.B "Packet id tables").
var allowedServerbound = map[State]map[VarUInt]bool{
	StateHandshake: {HandshakeSBHandshake: true},
	StateStatus:    {StatusSBRequest: true, StatusSBPing: true},
	StateLogin:     {LoginSBLoginStart: true, LoginSBEncryptionResponse: true},
	StatePlay: {
		PlaySBTeleportConfirm:  true,
		PlaySBClientSettings:   true,
		PlaySBKeepAlive:        true,
		PlaySBPlayerPosition:   true,
		PlaySBPlayerPosAndLook: true,
		PlaySBPlayerRotation:   true,
		PlaySBPlayerMovement:   true,
		PlaySBHeldItemChange:   true,
		PlaySBChatMessage:      true,
		PlaySBEntityAction:     true,
		PlaySBAnimation:        true,
	},
}

// IsKnownServerbound reports whether id is a recognized serverbound packet for state.
func IsKnownServerbound(state State, id VarUInt) bool {
	set, ok := allowedServerbound[state]
	if !ok {
		return false
	}
	return set[id]
}
