package handler

// APIV1Prefix is the canonical base path for public HTTP API v1.
const APIV1Prefix = "/api/v1"

// Route parameter names shared by registrations and lookups.
const (
	paramMatchID  = "id"
	paramTeamID   = "teamId"
	paramPosition = "position"
	paramPlayerID = "playerId"
)
