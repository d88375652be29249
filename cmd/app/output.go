package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printKV(out io.Writer, rows [][2]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(out io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "no results")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func formatMaybeUint(v *uint) string {
	if v == nil {
		return "-"
	}
	return uintToString(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatMaybeTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func formatSupply(s domain.PropertyTokenState) string {
	return fmt.Sprintf("%d/%d/%d", s.TokensSold, s.TokensIssued, s.TotalTokens)
}

func formatChange[T ~string](from, to T) string {
	if from == to {
		return string(to)
	}
	return string(from) + " -> " + string(to)
}

func printProperties(w io.Writer, items []domain.Property) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Name,
			string(item.Token.TokenizationStatus),
			string(item.Token.TokenSaleStatus),
			string(item.Token.SecondaryTradingStatus),
			string(item.Token.MintingStatus),
			formatSupply(item.Token),
			strconv.FormatInt(item.Version, 10),
		})
	}
	printTable(w, []string{"ID", "NAME", "TOKENIZATION", "SALE", "SECONDARY", "MINTING", "SOLD/ISSUED/TOTAL", "VERSION"}, rows)
}

func printProperty(w io.Writer, item domain.Property) {
	printKV(w, [][2]string{
		{"id", uintToString(item.ID)},
		{"name", item.Name},
		{"location", defaultDash(item.Location)},
		{"tokenization_status", string(item.Token.TokenizationStatus)},
		{"token_sale_status", string(item.Token.TokenSaleStatus)},
		{"secondary_trading_status", string(item.Token.SecondaryTradingStatus)},
		{"minting_status", string(item.Token.MintingStatus)},
		{"total_tokens", strconv.FormatInt(item.Token.TotalTokens, 10)},
		{"tokens_issued", strconv.FormatInt(item.Token.TokensIssued, 10)},
		{"tokens_sold", strconv.FormatInt(item.Token.TokensSold, 10)},
		{"last_action_at", formatMaybeTime(item.Token.LastActionAt)},
		{"last_action_by", formatMaybeUint(item.Token.LastActionBy)},
		{"version", strconv.FormatInt(item.Version, 10)},
		{"updated_at", formatTime(item.UpdatedAt)},
	})
}

func printActionResult(w io.Writer, item application.TokenActionResult) {
	e := item.Entry
	printKV(w, [][2]string{
		{"action_id", e.ActionID},
		{"action", string(e.Action)},
		{"property", uintToString(e.EntityID) + " " + e.EntityName},
		{"admin_id", uintToString(e.AdminID)},
		{"token_sale", formatChange(e.PreviousState.TokenSaleStatus, e.NewState.TokenSaleStatus)},
		{"secondary_trading", formatChange(e.PreviousState.SecondaryTradingStatus, e.NewState.SecondaryTradingStatus)},
		{"minting", formatChange(e.PreviousState.MintingStatus, e.NewState.MintingStatus)},
		{"reason", e.Reason},
		{"version", strconv.FormatInt(item.Property.Version, 10)},
		{"at", formatTime(e.CreatedAt)},
	})
}

func printActionLogs(w io.Writer, items []domain.AdminActionLogEntry) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			string(item.Action),
			uintToString(item.EntityID),
			uintToString(item.AdminID),
			formatChange(item.PreviousState.TokenSaleStatus, item.NewState.TokenSaleStatus),
			formatChange(item.PreviousState.SecondaryTradingStatus, item.NewState.SecondaryTradingStatus),
			formatChange(item.PreviousState.MintingStatus, item.NewState.MintingStatus),
			item.Reason,
			formatTime(item.CreatedAt),
		})
	}
	printTable(w, []string{"ID", "ACTION", "PROPERTY", "ADMIN", "SALE", "SECONDARY", "MINTING", "REASON", "AT"}, rows)
}

func printOverview(w io.Writer, item domain.TokenizationOverview) {
	rows := [][2]string{
		{"properties", strconv.Itoa(item.Properties)},
		{"total_tokens", strconv.FormatInt(item.TotalTokens, 10)},
		{"tokens_issued", strconv.FormatInt(item.TokensIssued, 10)},
		{"tokens_sold", strconv.FormatInt(item.TokensSold, 10)},
	}
	rows = append(rows, countRows("tokenization", item.TokenizationStatus)...)
	rows = append(rows, countRows("token_sale", item.TokenSaleStatus)...)
	rows = append(rows, countRows("secondary_trading", item.SecondaryTradingStatus)...)
	rows = append(rows, countRows("minting", item.MintingStatus)...)
	printKV(w, rows)
}

func countRows[K ~string](prefix string, counts map[K]int) [][2]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	rows := make([][2]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]string{prefix + "." + k, strconv.Itoa(counts[K(k)])})
	}
	return rows
}

func printUsers(w io.Writer, items []domain.User) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Email,
			formatTime(item.CreatedAt),
		})
	}
	printTable(w, []string{"ID", "EMAIL", "CREATED_AT"}, rows)
}

func printRoles(w io.Writer, items []domain.Role) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Key,
			item.Name,
		})
	}
	printTable(w, []string{"ID", "KEY", "NAME"}, rows)
}

func printAuditRecords(w io.Writer, items []domain.AuditRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Action,
			item.TargetType,
			formatMaybeUint(item.TargetID),
			defaultDash(item.ActorUserEmail),
			formatTime(item.CreatedAt),
		})
	}
	printTable(w, []string{"ID", "ACTION", "TARGET_TYPE", "TARGET_ID", "ACTOR", "AT"}, rows)
}

func defaultDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
