// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers and the member store,
registration pipeline and network tree behind them.

# Handler Types

Each handler is a struct with database and config dependencies:

  - SessionHandler: login, logout and action tokens
  - MemberHandler: admin member list, status changes, bulk actions, dashboard
  - FormHandler: form definitions (admin CRUD, public lookup)
  - SubmissionHandler: form submissions and registration
  - NetworkHandler: a member's downline by level
  - StatisticsHandler: visit, click and conversion counters
  - NotificationHandler: in-app notifications
  - ProfileHandler: profile update, password change, member dashboard
  - DownloadHandler: access-filtered downloads
  - EmailTemplateHandler, SettingsHandler: admin configuration
  - ReferralHandler: replica link visits
  - EmbedHandler: HTML render points

Handlers that send mail also take a mailer.Sender:

	memberHandler := handlers.NewMemberHandler(db, cfg, mail)

# Registration

A registration form submission runs through Pipeline.RegisterMember:

	validate fields → e-mail → password → resolve sponsor
	→ one transaction: user, member code, member, sponsor recount, submission
	→ welcome e-mail, sponsor e-mail + notification, conversion statistic

Rejections are returned as a RegistrationResult with Success false and
leave no rows behind. Other form types only store a pending submission.

# Sponsors

The sponsor is the first of: a member code posted with the form, the member
in the mmp_referrer cookie set by GET /ref/{code}, the default sponsor from
the general settings. Every insert or delete of a member recounts the
sponsor's total_referrals with a single UPDATE.

# Network Tree

BuildNetworkTree expands a member's downline one level per query:

	levels, err := handlers.BuildNetworkTree(ctx, db, memberID, 3)

levels[0] holds direct referrals. A depth of zero uses the configured
network_tree_levels; depth is capped at MaxNetworkTreeLevels.

# Statistics

Counters are one row per user, type and day, written with an upsert so
concurrent hits add up. The conversion rate is conversions per click as a
percentage with two decimals.

# Authorization

Member actions require a session (bearer token or mmp_session cookie).
State-changing and AJAX-style actions also require an X-Action-Token issued
by GET /auth/action-token for the same user and action. Admin routes require
the admin role.
*/
package handlers
