package search

// SearchLogsDescription is the tool description shown to MCP clients and
// language models.
const SearchLogsDescription = `Search logs by ID and time ranges. REQUIRES both search_id and at least one time_range.

Scans the compressed log archive for lines containing search_id as a literal substring and groups the matches by container_name. Each time range is normalized to the canonical YYYYMMDDHHMM archive key; supported inputs include YYYYMMDDHHMM, YYYY-MM-DD [HH:MM], YYYY/MM/DD [HH:MM], DD-MM-YYYY [HH:MM], DD/MM/YYYY [HH:MM], "February 2, 2025 [HH:MM]", "February 2025" and the relative keywords today, now, yesterday. Dates without a time default to 00:00; months without a day default to the first of the month.

Returns {"search_id", "time_ranges", "results": {container: [{"container_name", "message", "timestamp"}]}, "total_results"}.`
