// Package notionsync mirrors a user's ledger into a Notion database. The
// mirror is one-way: Notion edits are overwritten on the next run.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/logger"
)

// MirrorResult counts the page operations of one mirror run. In a dry run the
// counts are what would have happened.
type MirrorResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// MirrorLedger makes the Notion database reflect l for l.UserID: pages whose
// row key is still in range are updated, missing rows get a page, and this
// user's stale or duplicate pages are archived. Pages of other users are left
// alone. Individual page failures are logged and counted, not returned.
func MirrorLedger(ctx context.Context, notionClient NotionService, notionDBID string, l ledger.Ledger, dryRun bool) (MirrorResult, error) {
	log := logger.FromContext(ctx).With().Str("user_id", l.UserID).Logger()

	log.Info().
		Int("record_count", l.Len()).
		Bool("dry_run", dryRun).
		Msg("Starting ledger mirror to Notion")

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return MirrorResult{}, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	var res MirrorResult
	existing := make(map[int]string)
	var stale []string

	for _, page := range pages {
		userID, index, ok := ParseRowKey(extractRowKey(page))
		if !ok || userID != l.UserID {
			continue
		}
		if _, dup := existing[index]; dup || index >= l.Len() {
			stale = append(stale, string(page.ID))
			continue
		}
		existing[index] = string(page.ID)
	}

	for _, pageID := range stale {
		if dryRun {
			log.Info().Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, pageID); err != nil {
			log.Warn().Err(err).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for i, r := range l.Records {
		pageID, found := existing[i]

		if dryRun {
			if found {
				res.Updated++
			} else {
				log.Info().Int("row", i).Msg("[DRY RUN] Would create Notion page")
				res.Created++
			}
			continue
		}

		props := RecordToNotionProperties(l.UserID, i, r)
		if found {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Int("row", i).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().Err(err).Int("row", i).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Int("row", i).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Ledger mirror completed")

	return res, nil
}

// queryAllNotionPages follows the query cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
