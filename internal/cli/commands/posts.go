package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vayu-prana/vayu/internal/blog"
)

// NewPostsCmd creates the posts command
func NewPostsCmd() *cobra.Command {
	var drafts bool

	cmd := &cobra.Command{
		Use:     "posts",
		Aliases: []string{"ls"},
		Short:   "List blog posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPosts(drafts)
		},
	}

	cmd.Flags().BoolVar(&drafts, "drafts", false, "Include unpublished drafts (requires admin)")

	return cmd
}

func runPosts(drafts bool) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := context.Background()
	blogService := newBlogService(e)

	var posts []blog.BlogPost
	if drafts {
		if _, err := e.resolveUser(ctx); err != nil {
			return err
		}
		token, err := e.accessToken()
		if err != nil {
			return err
		}
		posts, err = blogService.ListAll(ctx, token)
		if err != nil {
			return err
		}
	} else {
		posts, err = blogService.ListPublished(ctx)
		if err != nil {
			return err
		}
	}

	if len(posts) == 0 {
		fmt.Println("No posts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTITLE\tPUBLISHED\tCREATED AT")
	fmt.Fprintln(w, "────\t─────\t─────────\t──────────")

	for _, post := range posts {
		published := "yes"
		if !post.Published {
			published = "draft"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			post.Slug,
			post.Title,
			published,
			post.CreatedAt.Format("2006-01-02 15:04"),
		)
	}

	w.Flush()

	return nil
}

// NewPublishCmd creates the publish command
func NewPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <post-id>",
		Short: "Publish a draft blog post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(args[0])
		},
	}
}

func runPublish(postID string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := context.Background()

	user, err := e.resolveUser(ctx)
	if err != nil {
		return err
	}
	if user.Email != e.cfg.Site.AdminEmail {
		return fmt.Errorf("publishing requires the admin account")
	}

	token, err := e.accessToken()
	if err != nil {
		return err
	}

	post, err := newBlogService(e).Publish(ctx, token, postID)
	if err != nil {
		return err
	}

	fmt.Println("✓ Post published!")
	fmt.Printf("  Title: %s\n", post.Title)
	fmt.Printf("  URL:   %s/blog/%s\n", e.cfg.Site.URL, post.Slug)

	return nil
}

func newBlogService(e *env) *blog.Service {
	return blog.NewService(e.client, zerolog.Nop())
}
