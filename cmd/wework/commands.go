package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/piccscy/wechat/internal/app"
	"github.com/piccscy/wechat/internal/config"
	"github.com/piccscy/wechat/internal/logger"
	"github.com/piccscy/wechat/pkg/crm"
	"github.com/piccscy/wechat/pkg/httpclient"
)

type apiCall func(ctx context.Context, c *crm.Client) (httpclient.Result, error)

// runCall loads config, performs one API call and prints the result as indented JSON.
// A non-zero errcode is printed and then reported as the command error.
func runCall(cmd *cobra.Command, call apiCall) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := app.NewAPI(cfg, log)
	if err != nil {
		return err
	}
	defer api.Close()

	res, err := call(ctx, api.CRM)
	if err != nil {
		return err
	}
	if err := printResult(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	return res.Err()
}

func printResult(w io.Writer, res httpclient.Result) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func newFollowUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow-users",
		Short: "List members with the customer contact permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.GetFollowUserList(ctx)
			})
		},
	}
}

func newCustomersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customers <userid>",
		Short: "List the external contacts of a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.List(ctx, args[0])
			})
		},
	}
}

func newCustomerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customer <external_userid>",
		Short: "Show the details of an external contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.GetExternalContact(ctx, args[0])
			})
		},
	}
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags [tag_id...]",
		Short: "List corporate customer tags, optionally restricted to the given ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.GetCorpTagList(ctx, args)
			})
		},
	}
}

func newMarkTagCmd() *cobra.Command {
	var add, remove []string
	cmd := &cobra.Command{
		Use:   "mark-tag <userid> <external_userid>",
		Short: "Add or remove corporate tags on a customer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(add) == 0 && len(remove) == 0 {
				return fmt.Errorf("at least one of --add or --remove is required")
			}
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.MarkTag(ctx, args[0], args[1], add, remove)
			})
		},
	}
	cmd.Flags().StringSliceVar(&add, "add", nil, "tag ids to add")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "tag ids to remove")
	return cmd
}

func newGroupChatsCmd() *cobra.Command {
	var (
		status        int
		offset, limit int
		owners        []string
	)
	cmd := &cobra.Command{
		Use:   "groupchats",
		Short: "List customer group chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *crm.OwnerFilter
			if len(owners) > 0 {
				filter = &crm.OwnerFilter{UserIDList: owners}
			}
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.GroupChatList(ctx, status, filter, offset, limit)
			})
		},
	}
	cmd.Flags().IntVar(&status, "status", crm.StatusFilterAll, "status filter (0 all, 1 resigned pending, 2 resigned in progress, 3 resigned done)")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 100, "page size")
	cmd.Flags().StringSliceVar(&owners, "owner", nil, "restrict to chats owned by these userids")
	return cmd
}

func newGroupChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groupchat <chat_id>",
		Short: "Show the details of a customer group chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.GetGroupChat(ctx, args[0])
			})
		},
	}
}

func newGroupMsgResultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group-msg-result <msgid>",
		Short: "Show the delivery result of a mass message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.GetGroupMsgResult(ctx, args[0])
			})
		},
	}
}

func newUnassignedCmd() *cobra.Command {
	var pageID, pageSize int
	cmd := &cobra.Command{
		Use:   "unassigned",
		Short: "List customers of resigned members awaiting reassignment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCall(cmd, func(ctx context.Context, c *crm.Client) (httpclient.Result, error) {
				return c.GetUnassignedList(ctx, pageID, pageSize)
			})
		},
	}
	cmd.Flags().IntVar(&pageID, "page-id", 0, "page index")
	cmd.Flags().IntVar(&pageSize, "page-size", 1000, "page size")
	return cmd
}
