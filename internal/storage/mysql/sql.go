package mysql

const selectClaimSQL = `
SELECT id FROM claimed_businesses
WHERE user_id = ? AND place_id = ?
`

const insertClaimSQL = `
INSERT INTO claimed_businesses (user_id, place_id, name, address)
VALUES (?, ?, ?, ?)
`

const deleteClaimSQL = `
DELETE FROM claimed_businesses
WHERE user_id = ? AND place_id = ?
`

const listClaimsSQL = `
SELECT user_id, place_id, name, address, created_at
FROM claimed_businesses
WHERE user_id = ?
ORDER BY created_at DESC
`

const listClaimedPlaceIDsSQL = `
SELECT DISTINCT place_id FROM claimed_businesses
`

const insertReviewsPrefix = "INSERT INTO reviews\n  (place_id, source_id, author, rating, sentiment, content)\nVALUES "

// COALESCE keeps the old value when the new one is NULL.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author    = COALESCE(VALUES(author), reviews.author),\n" +
	"  rating    = COALESCE(VALUES(rating), reviews.rating),\n" +
	"  sentiment = COALESCE(VALUES(sentiment), reviews.sentiment),\n" +
	"  content   = COALESCE(VALUES(content), reviews.content)\n"
