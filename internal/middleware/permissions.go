package middleware

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/appcmd"
)

var PermissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite:   "Create Instant Invite",
	discordgo.PermissionKickMembers:           "Kick Members",
	discordgo.PermissionBanMembers:            "Ban Members",
	discordgo.PermissionAdministrator:         "Administrator",
	discordgo.PermissionManageChannels:        "Manage Channels",
	discordgo.PermissionManageServer:          "Manage Server",
	discordgo.PermissionAddReactions:          "Add Reactions",
	discordgo.PermissionViewAuditLogs:         "View Audit Logs",
	discordgo.PermissionViewChannel:           "View Channel",
	discordgo.PermissionSendMessages:          "Send Messages",
	discordgo.PermissionSendTTSMessages:       "Send TTS Messages",
	discordgo.PermissionManageMessages:        "Manage Messages",
	discordgo.PermissionEmbedLinks:            "Embed Links",
	discordgo.PermissionAttachFiles:           "Attach Files",
	discordgo.PermissionReadMessageHistory:    "Read Message History",
	discordgo.PermissionMentionEveryone:       "Mention Everyone",
	discordgo.PermissionUseExternalEmojis:     "Use External Emojis",
	discordgo.PermissionUseSlashCommands:      "Use Application Commands",
	discordgo.PermissionManageThreads:         "Manage Threads",
	discordgo.PermissionCreatePublicThreads:   "Create Public Threads",
	discordgo.PermissionCreatePrivateThreads:  "Create Private Threads",
	discordgo.PermissionUseExternalStickers:   "Use External Stickers",
	discordgo.PermissionSendMessagesInThreads: "Send Messages in Threads",
	discordgo.PermissionVoicePrioritySpeaker:  "Priority Speaker",
	discordgo.PermissionVoiceStreamVideo:      "Stream Video",
	discordgo.PermissionVoiceConnect:          "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:            "Speak",
	discordgo.PermissionVoiceMuteMembers:      "Mute Members",
	discordgo.PermissionVoiceDeafenMembers:    "Deafen Members",
	discordgo.PermissionVoiceMoveMembers:      "Move Members",
	discordgo.PermissionVoiceUseVAD:           "Use Voice Activity Detection",
	discordgo.PermissionVoiceRequestToSpeak:   "Request to Speak",
	discordgo.PermissionUseActivities:         "Use Activities",
	discordgo.PermissionChangeNickname:        "Change Nickname",
	discordgo.PermissionManageNicknames:       "Manage Nicknames",
	discordgo.PermissionManageRoles:           "Manage Roles",
	discordgo.PermissionManageWebhooks:        "Manage Webhooks",
	discordgo.PermissionManageEmojis:          "Manage Emojis and Stickers",
	discordgo.PermissionManageEvents:          "Manage Events",
	discordgo.PermissionViewGuildInsights:     "View Guild Insights",
	discordgo.PermissionModerateMembers:       "Moderate Members",
}

// PermissionList names every bit set in perms, lowest bit first.
func PermissionList(perms int64) []string {
	var out []string
	for p := uint64(perms); p != 0; p &= p - 1 {
		bit := int64(1) << bits.TrailingZeros64(p)
		name := PermissionNames[bit]
		if name == "" {
			name = fmt.Sprintf("0x%x", bit)
		}
		out = append(out, name)
	}
	return out
}

// WithUserPermissionCheck enforces the bits set with WithMemberPermissions
// when the command runs. Administrators and the developer always pass.
func WithUserPermissionCheck(developerID string) appcmd.Middleware {
	return func(next appcmd.HandlerFunc) appcmd.HandlerFunc {
		return func(ic *appcmd.InteractionContext) error {
			required := ic.Command().MemberPermissions()
			m := ic.Member()
			if required == 0 || ic.GuildID() == "" || m == nil || m.User == nil {
				return next(ic)
			}
			if m.Permissions&discordgo.PermissionAdministrator != 0 {
				return next(ic)
			}
			if developerID != "" && m.User.ID == developerID {
				return next(ic)
			}
			if m.Permissions&required != 0 {
				return next(ic)
			}

			msg := fmt.Sprintf(
				"You need at least one of the following permissions to run this command:\n`%s`",
				strings.Join(PermissionList(required), "`, `"),
			)
			return ic.ReplyEmbed(deny(msg), true)
		}
	}
}
