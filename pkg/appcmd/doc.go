// Package appcmd adds typed application commands (slash, user and message
// context-menu commands) to bots built on discordgo.
//
// Commands are declared with NewSlash, NewUserCommand, NewMessageCommand and
// NewGroup, queued on a Client, pushed to Discord by the Synchronizer on the
// first Ready event and dispatched back to their handlers when interactions
// arrive.
//
//	client := appcmd.NewForSession(ctx, session)
//
//	type helloArgs struct {
//	    User appcmd.Optional[*discordgo.Member] `description:"Who to greet"`
//	}
//
//	client.Slash("hi", "Say hello", func(ic *appcmd.InteractionContext, args helloArgs) error {
//	    return ic.Reply("hello")
//	})
//
// Slash command options are inferred from the exported fields of the handler's
// argument struct unless WithOptions supplies them explicitly.
package appcmd
